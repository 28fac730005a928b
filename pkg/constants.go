package xxhverify

// Engine defaults
const (
	DefaultHashWorkers  = 16        // admission tokens (K)
	DefaultResultBuffer = 64        // result channel capacity
	DefaultBufferSize   = 32 * 1024 // hash read chunk size in bytes
	MaxHashWorkers      = 256
)

// Manifest line format constants
const (
	LineOpen      = "["
	LineClose     = "]"
	LineSeparator = " | "
	lineTrimSet   = "[] "
)

// Context constants for manifest index entries
const (
	ManifestContext = "manifest"
)

// Temporary manifest files are named ".<base>.<uuid>.tmp" next to the target
const (
	TempManifestPrefix = "."
	TempManifestSuffix = ".tmp"
)

// Check result words printed per file
const (
	WordSuccess = "success"
	WordFailure = "failure"
	WordMissing = "missing"
	WordError   = "error"
)

// Malformed manifest line policies
const (
	MalformedError = "error" // abort decoding
	MalformedWarn  = "warn"  // log and skip
	MalformedSkip  = "skip"  // skip silently
)

// Debug flag names understood by IsDebugEnabled
const (
	DebugScan     = "scan"
	DebugHash     = "hash"
	DebugManifest = "manifest"
	DebugVerify   = "verify"
	DebugSchedule = "schedule"
)
