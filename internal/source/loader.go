package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sdkforge/repo-resolver/internal/fetch"
	"github.com/sdkforge/repo-resolver/internal/packages"
	"github.com/sdkforge/repo-resolver/internal/repoxml"
)

// loadSteps is the coarse step count reported to the progress monitor:
// fetch, validate, parse, done.
const loadSteps = 4

// maxDetectAttempts bounds the detect/validate loop. Together with the
// single fetch fallback this makes non-termination structurally
// impossible: a load performs at most two fetches and two detection
// passes, then stops.
const maxDetectAttempts = 2

// UpgradeStyle selects the wording of the "please upgrade" messages shown
// when a source publishes a newer schema than this engine understands.
// Callers embedding the engine in a larger application supply their own
// style instead of the engine probing its host environment.
type UpgradeStyle string

const (
	// UpgradeStyleStandalone addresses users running the standalone tools.
	UpgradeStyleStandalone UpgradeStyle = "standalone"

	// UpgradeStyleEmbedded addresses users of a host application embedding
	// the engine.
	UpgradeStyleEmbedded UpgradeStyle = "embedded"
)

// SchemaValidator validates a document buffer against the schema bound to
// a version and returns the canonical schema URI on success.
type SchemaValidator interface {
	Validate(data []byte, version int) (string, error)
}

// Outcome is the immutable result of one load. The orchestrator builds it
// locally and publishes it onto the Source only on completion, so partial
// results are never observable.
type Outcome struct {
	// OperationID correlates log entries and API responses for this load.
	OperationID string `json:"operationId"`

	// URL is the source URL after any successful fallback rewrite.
	URL string `json:"url"`

	// Packages is the full parsed package list, or nil when the load
	// failed. An empty non-nil slice means a valid document declaring no
	// packages.
	Packages []*packages.Package `json:"packages"`

	// Description is the human-readable source description, including the
	// package count summary on success.
	Description string `json:"description"`

	// Error is the final error message, or "" on success. The
	// forward-compatibility path sets it to the upgrade notice even though
	// packages were produced.
	Error string `json:"error,omitempty"`

	// SchemaURI is the canonical schema URI the document validated
	// against, or the newest supported URI on the probed path.
	SchemaURI string `json:"schemaUri,omitempty"`

	// UsedAlternateURL records that the canonical-filename fallback URL
	// was the one that worked.
	UsedAlternateURL bool `json:"usedAlternateUrl,omitempty"`

	// UpgradeRequired marks a forward-compatibility load: only the
	// self-update-capable subset was parsed.
	UpgradeRequired bool `json:"upgradeRequired,omitempty"`
}

// Loader resolves repository sources. It is stateless between loads and
// safe for concurrent use across distinct Sources.
type Loader struct {
	fetcher   fetch.Fetcher
	validator SchemaValidator
	log       *zap.SugaredLogger
	style     UpgradeStyle
}

// Option configures a Loader.
type Option func(*Loader)

// WithValidator overrides the schema validator.
func WithValidator(v SchemaValidator) Option {
	return func(l *Loader) { l.validator = v }
}

// WithUpgradeStyle selects the upgrade message wording.
func WithUpgradeStyle(style UpgradeStyle) Option {
	return func(l *Loader) { l.style = style }
}

// WithLogger sets the loader's logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(l *Loader) { l.log = log }
}

// NewLoader creates a Loader using the given fetcher.
func NewLoader(fetcher fetch.Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher:   fetcher,
		validator: repoxml.NewValidator(),
		log:       zap.NewNop().Sugar(),
		style:     UpgradeStyleStandalone,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// loadState is one state of the resolution state machine.
type loadState int

const (
	stateFetching loadState = iota
	stateDetecting
	stateValidating
	stateProbing
	stateParsing
	stateDone
)

// Load resolves the source's index document into packages. It always
// terminates, never panics across its boundary, and reports every failure
// mode as data on the returned Outcome. On completion the outcome is
// applied to the Source atomically; a failed load leaves the source's
// previously known packages untouched.
func (l *Loader) Load(ctx context.Context, src *Source, mon Monitor, forceHTTP bool) *Outcome {
	if mon == nil {
		mon = NopMonitor{}
	}

	opID := uuid.NewString()
	log := l.log.With("operation", opID, "source", src.URL())

	url := src.URL()
	if forceHTTP {
		url = strings.Replace(url, "https://", "http://", 1)
	}

	out := &Outcome{OperationID: opID, URL: src.URL()}

	mon.SetStepCount(loadSteps)
	mon.SetDescription(fmt.Sprintf("Fetching %s", url))

	var (
		data           []byte
		version        int
		doc            *repoxml.Document
		schemaURI      string
		fetchErrMsg    string
		softErrMsg     string
		usedAlt        bool
		upgrade        bool
		detectAttempts int
	)

	state := stateFetching
	for state != stateDone {
		switch state {
		case stateFetching:
			var ferr error
			data, ferr = l.fetcher.Fetch(ctx, url)
			if ferr != nil && !strings.HasSuffix(url, repoxml.IndexFilename) {
				alt := alternateURL(url)
				log.Debugf("Fetch failed (%v), retrying at %s", ferr, alt)
				url = alt
				usedAlt = true
				data, ferr = l.fetcher.Fetch(ctx, url)
			}
			if ferr != nil {
				fetchErrMsg = renderFetchError(ferr)
				state = stateDone
				break
			}
			mon.Advance()
			mon.SetDescription("Validating document")
			state = stateDetecting

		case stateDetecting:
			detectAttempts++
			version = repoxml.DetectVersion(data)
			switch {
			case version >= 1 && version <= repoxml.LatestVersion:
				state = stateValidating
			case version > repoxml.LatestVersion:
				state = stateProbing
			default:
				// Obviously not one of our documents. The canonical-filename
				// URL may still hold one.
				if next, ok := l.refetchAlternate(ctx, &url, usedAlt, detectAttempts, log); ok {
					data = next
					usedAlt = true
					state = stateDetecting
					break
				}
				// Keep an earlier diagnostic: a validation failure on the
				// first document says more than the alternate being junk.
				if softErrMsg == "" {
					softErrMsg = fmt.Sprintf("The document at %s is not a recognizable repository index", url)
				}
				state = stateDone
			}

		case stateValidating:
			uri, verr := l.validator.Validate(data, version)
			if verr == nil {
				parsed, perr := repoxml.ParseDocument(data)
				if perr != nil {
					softErrMsg = renderValidationError(url, perr)
					state = stateDone
					break
				}
				doc = parsed
				schemaURI = uri
				if usedAlt {
					mon.SetResult(fmt.Sprintf("Repository found at %s", url))
				}
				state = stateParsing
				break
			}

			var unavailable *repoxml.UnavailableError
			if errors.As(verr, &unavailable) {
				// An environment problem, not a document problem; the
				// alternate URL cannot help.
				softErrMsg = fmt.Sprintf("Schema validation is unavailable for %s: %v", url, verr)
				state = stateDone
				break
			}

			softErrMsg = renderValidationError(url, verr)
			if next, ok := l.refetchAlternate(ctx, &url, usedAlt, detectAttempts, log); ok {
				data = next
				usedAlt = true
				state = stateDetecting
				break
			}
			state = stateDone

		case stateProbing:
			if probed := repoxml.ProbeNewerSchema(data); probed != nil {
				doc = probed
				schemaURI = repoxml.NamespaceURI(repoxml.LatestVersion)
				upgrade = true
				// The probe result supersedes any earlier validation error.
				softErrMsg = ""
				state = stateParsing
				break
			}
			softErrMsg = fmt.Sprintf(
				"The repository at %s uses schema version %d, which is newer than this tool supports. %s",
				url, version, upgradeMessage(l.style))
			state = stateDone

		case stateParsing:
			mon.Advance()
			mon.SetDescription("Parsing packages")

			pkgs := packages.Parse(doc, schemaURI, src.Trust(), src.URL(), log)

			out.Packages = pkgs
			out.SchemaURI = schemaURI
			out.UsedAlternateURL = usedAlt
			out.UpgradeRequired = upgrade
			if usedAlt {
				// Remember the working form of the URL for next time.
				out.URL = url
			}

			desc := src.defaultDescription()
			if upgrade {
				out.Error = upgradeMessage(l.style)
				desc += "\n" + upgradeDescription(l.style)
			}
			out.Description = desc + packageCountSummary(len(pkgs))

			mon.Advance()
			state = stateDone
		}
	}

	if out.Packages == nil {
		// Render the failure taxonomy into one final message. Fetch
		// exceptions take priority for visibility; validation text already
		// produced for this run is preserved, not discarded.
		parts := make([]string, 0, 2)
		if fetchErrMsg != "" {
			parts = append(parts, fetchErrMsg)
		}
		if softErrMsg != "" {
			parts = append(parts, softErrMsg)
		}
		if len(parts) == 0 {
			parts = append(parts, fmt.Sprintf("Failed to load repository at %s", url))
		}
		out.Error = strings.Join(parts, "\n")
		out.Description = src.defaultDescription()
		mon.SetResult(out.Error)
		log.Warnf("Load failed: %s", out.Error)
	} else {
		mon.SetResult(fmt.Sprintf("Found %d package(s) at %s", len(out.Packages), url))
		log.Infof("Load complete: %d package(s)", len(out.Packages))
	}

	src.apply(out)
	mon.Advance()
	return out
}

// refetchAlternate refetches against the canonical-filename URL when that
// alternative has not been tried yet for any reason. Fetch errors during
// this second attempt are deliberately not recorded so they cannot hide an
// earlier, more meaningful diagnostic.
func (l *Loader) refetchAlternate(
	ctx context.Context, url *string, usedAlt bool, attempts int, log *zap.SugaredLogger,
) ([]byte, bool) {
	if usedAlt || attempts >= maxDetectAttempts || strings.HasSuffix(*url, repoxml.IndexFilename) {
		return nil, false
	}

	alt := alternateURL(*url)
	log.Debugf("Retrying with canonical index filename at %s", alt)

	data, err := l.fetcher.Fetch(ctx, alt)
	if err != nil {
		return nil, false
	}

	*url = alt
	return data, true
}

// alternateURL appends the canonical index filename to the URL.
func alternateURL(url string) string {
	if !strings.HasSuffix(url, "/") {
		url += "/"
	}
	return url + repoxml.IndexFilename
}

func renderFetchError(err error) string {
	var fe *fetch.Error
	if errors.As(err, &fe) {
		switch fe.Kind {
		case fetch.KindNotFound:
			return fmt.Sprintf("Failed to fetch URL %s: file not found", fe.URL)
		case fetch.KindTLS:
			return fmt.Sprintf(
				"Failed to fetch URL %s: TLS/certificate error. You might want to force plain HTTP for this source.",
				fe.URL)
		default:
			return fmt.Sprintf("Failed to fetch URL %s: %s", fe.URL, fe.Message)
		}
	}
	return fmt.Sprintf("Failed to fetch URL: %v", err)
}

func renderValidationError(url string, err error) string {
	var invalid *repoxml.InvalidDocumentError
	if errors.As(err, &invalid) && invalid.Line > 0 {
		return fmt.Sprintf("Document validation failed for %s.\nLine %d:%d, Error: %s",
			url, invalid.Line, invalid.Col, invalid.Msg)
	}

	var parseErr *repoxml.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Sprintf("Document validation failed for %s.\nLine %d:%d, Error: %v",
			url, parseErr.Line, parseErr.Col, parseErr.Err)
	}

	return fmt.Sprintf("Document validation failed for %s.\nError: %v", url, err)
}

func upgradeMessage(style UpgradeStyle) string {
	if style == UpgradeStyleEmbedded {
		return "This repository requires a more recent version of the host application. Please update it."
	}
	return "This repository requires a more recent version of the resolver tools. Please update."
}

func upgradeDescription(style UpgradeStyle) string {
	if style == UpgradeStyleEmbedded {
		return "This repository requires a more recent version of the host application.\n" +
			"You must update it before you can see other new packages."
	}
	return "This repository requires a more recent version of the resolver tools.\n" +
		"You must update them before you can see other new packages."
}

func packageCountSummary(n int) string {
	switch n {
	case 0:
		return "\nNo packages found."
	case 1:
		return "\nOne package found."
	default:
		return fmt.Sprintf("\n%d packages found.", n)
	}
}
