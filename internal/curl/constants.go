package curl

const (
	headerContentType    = "Content-Type"
	headerAcceptEncoding = "Accept-Encoding"
	headerUserAgent      = "User-Agent"
	headerReferer        = "Referer"
	headerCookie         = "Cookie"
)

const (
	mimeJSON              = "application/json"
	mimeFormURLEncoded    = "application/x-www-form-urlencoded"
	mimeOctetStream       = "application/octet-stream"
	acceptEncodingDefault = "gzip, deflate, br"
)
