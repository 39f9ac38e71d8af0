package rulebook

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)
