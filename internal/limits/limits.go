package limits

// Size limits for remote payloads

const (
	// JSON is the size limit for JSON API responses (1MB)
	JSON = 1 << 20

	// Document is the largest document body accepted from a store (10MB)
	Document = 10 << 20

	// ErrorBody is the maximum size for error response bodies (1KB)
	// Used when parsing error messages from failed API calls
	ErrorBody = 1024
)
