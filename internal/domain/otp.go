package domain

import "time"

// OTPCode is a single-use passcode. Used flips false->true once, on redemption.
type OTPCode struct {
	OTPID     string    `json:"id" dynamodbav:"otp_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Email     string    `json:"-" dynamodbav:"email"`
	Code      string    `json:"-" dynamodbav:"code"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"-"`
	Used      bool      `json:"used" dynamodbav:"used"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

// AllowedEmailPattern is a regular expression an email must match to sign in.
type AllowedEmailPattern struct {
	PatternID string `json:"id" dynamodbav:"pattern_id"`
	Pattern   string `json:"pattern" dynamodbav:"pattern"`
}
