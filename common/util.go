package common

import "strings"

// GetSortingCondition maps a user-supplied sort parameter to a whitelisted
// column and direction. A leading "-" means descending.
func GetSortingCondition(sort string) (string, string) {
	// Default sorting column
	orderBy := "created_at"
	orderDirection := "ASC"

	isDescending := strings.HasPrefix(sort, "-")
	columnName := strings.TrimPrefix(sort, "-")

	// Ensure orderBy is a valid column name (prevent SQL injection)
	allowedColumns := map[string]bool{"updated_at": true, "created_at": true, "status": true, "deposit_amount": true}
	if allowedColumns[columnName] {
		orderBy = columnName
	}

	if isDescending {
		orderDirection = "DESC"
	}

	return orderBy, orderDirection
}

// PairKey builds the provider pair identifier, e.g. "btc-mainnet/eth-ethereum".
func PairKey(fromAsset, fromChain, toAsset, toChain string) string {
	return strings.ToLower(fromAsset) + "-" + strings.ToLower(fromChain) +
		"/" + strings.ToLower(toAsset) + "-" + strings.ToLower(toChain)
}
