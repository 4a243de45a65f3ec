package shared

// Wire protocol constants shared by the server and the client.
const (
	// ListByPrefixPath lists keys: GET /list_by_prefix/<prefix>
	ListByPrefixPath = "/list_by_prefix/"

	ParamCallback        = "callback"
	ParamModificationKey = "modification-key"

	// Undefined is returned for keys that were never written.
	Undefined = "undefined"

	ContentTypeJavaScript = "application/javascript"
	ContentTypeHTML       = "text/html; charset=utf-8"

	HeaderRequestID = "X-Request-Id"
)
