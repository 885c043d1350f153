package dynamo

// DynamoDB attribute names used in key and condition expressions.
const (
	fieldUserID    = "user_id"
	fieldEmail     = "email"
	fieldOTPID     = "otp_id"
	fieldCode      = "code"
	fieldUsed      = "used"
	fieldExpiresAt = "expires_at"
	fieldTTL       = "ttl"
	fieldPatternID = "pattern_id"

	indexUserID = "user_id-index"
)
