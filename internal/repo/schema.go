package repo

const (
	tableIdentities = "pass_identities"
)

const (
	colSerial          = "serial_number"
	colCustomerID      = "customer_id"
	colOfferID         = "offer_id"
	colWalletType      = "wallet_type"
	colAuthToken       = "authentication_token"
	colCacheValidator  = "cache_validator"
	colStatus          = "status"
	colScheduledExpiry = "scheduled_expiration_at"
	colIssuedAt        = "issued_at"
	colUpdatedAt       = "updated_at"
	colPushWindowStart = "push_window_start"
	colPushCount       = "push_count"
)

// identityColumns — порядок совпадает с scanIdentity
const identityColumns = colSerial + `, ` + colCustomerID + `, ` + colOfferID + `, ` + colWalletType + `, ` +
	colAuthToken + `, ` + colCacheValidator + `, ` + colStatus + `, ` + colScheduledExpiry + `, ` +
	colIssuedAt + `, ` + colUpdatedAt + `, ` + colPushWindowStart + `, ` + colPushCount

// liveStatuses — условие partial unique индекса
const liveStatuses = colStatus + ` IN ('active','completed')`
