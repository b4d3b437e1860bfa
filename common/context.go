package common

type ProxyContextKey string

const (
	ContextLogger    ProxyContextKey = "ip.logger"
	ContextAction    ProxyContextKey = "ip.action"
	ContextRequestId ProxyContextKey = "ip.request_id"
)
