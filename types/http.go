package types

type BaseResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type StatsResponse struct {
	BaseResponse
	TotalKeys         int   `json:"total_keys"`
	TotalSize         int64 `json:"total_size"`
	ActiveConnections int   `json:"active_connections"`
}
