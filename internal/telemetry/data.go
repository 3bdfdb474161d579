package telemetry

import (
	"time"
)

type FetchEvent struct {
	FetchURL    string
	HTTPStatus  int
	Duration    time.Duration
	ContentType string
	Attempts    int
	Secondary   bool
}

// CacheOutcome names what happened when a resolution consulted the cache.
type CacheOutcome string

const (
	CacheHit    CacheOutcome = "hit"
	CacheMiss   CacheOutcome = "miss"
	CacheShared CacheOutcome = "shared"
	CacheStored CacheOutcome = "stored"
)

type ResolutionEvent struct {
	RequestID string
	URL       string
	Outcome   CacheOutcome
	ErrorTag  string
	Duration  time.Duration
}

/*
ErrorCause is a closed, canonical classification used exclusively for
observability (logging, reporting).

Rules:
  - ErrorCause MUST NOT influence control flow.
  - ErrorCause MUST NOT be used to decide retries or fallbacks.
  - Packages MAY map their local errors to ErrorCause,
    but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

  - The failure does not map cleanly to any known category.

# CauseNetworkFailure

  - Timeouts, DNS resolution failures, TLS handshakes, refused or reset connections.

# CauseHTTPFailure

  - The server answered with a 4xx/5xx status, or a page rendered as "not found".

# CauseContentInvalid

  - Content was fetched but could not be processed meaningfully.
  - Unparseable oEmbed or JSON payloads.

# CauseStorageFailure

  - Failure while reading or writing the icon cache backend.

# CauseEnrichmentFailure

  - An enrichment handler failed or its provider circuit is open.

# CauseInvariantViolation

  - Invalid configuration or an internal consistency check failing.
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CauseHTTPFailure
	CauseContentInvalid
	CauseStorageFailure
	CauseEnrichmentFailure
	CauseInvariantViolation
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CauseHTTPFailure:
		return "http_failure"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseEnrichmentFailure:
		return "enrichment_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL        AttributeKey = "url"
	AttrHost       AttributeKey = "host"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrHandler    AttributeKey = "handler"
	AttrProvider   AttributeKey = "provider"
	AttrBackend    AttributeKey = "backend"
	AttrRequestID  AttributeKey = "request_id"
)
