package shared

import "fmt"

// NumberCounterKey builds the redis key holding a numbering sequence for one
// tenant, prefix and calendar year.
func NumberCounterKey(tenantID int64, prefix string, year int) string {
	return fmt.Sprintf("numbering:%d:%s:%d", tenantID, prefix, year)
}

// StatementCacheKey builds the cache key for a rendered statement.
func StatementCacheKey(tenantID int64, report, window string) string {
	return fmt.Sprintf("statement:%d:%s:%s", tenantID, report, window)
}
