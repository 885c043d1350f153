package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-auth-gate/internal/domain"
)

// otpItem is the stored shape of an OTP code. PK: user_id, SK: otp_id.
// expires_at is unix millis for the consume condition; ttl is unix seconds
// for DynamoDB expiry.
type otpItem struct {
	UserID    string    `dynamodbav:"user_id"`
	OTPID     string    `dynamodbav:"otp_id"`
	Email     string    `dynamodbav:"email,omitempty"`
	Code      string    `dynamodbav:"code"`
	ExpiresAt int64     `dynamodbav:"expires_at"`
	TTL       int64     `dynamodbav:"ttl"`
	Used      bool      `dynamodbav:"used"`
	CreatedAt time.Time `dynamodbav:"created_at"`
}

func (s *Store) InsertOTP(ctx context.Context, c *domain.OTPCode) error {
	item, err := attributevalue.MarshalMap(otpItem{
		UserID:    c.UserID,
		OTPID:     c.OTPID,
		Email:     c.Email,
		Code:      c.Code,
		ExpiresAt: c.ExpiresAt.UnixMilli(),
		TTL:       c.ExpiresAt.Unix(),
		Used:      c.Used,
		CreatedAt: c.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal otp: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.OTPCodes),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put otp: %w", err)
	}
	return nil
}

// RevokeOTPs marks every unused code of the user as used.
func (s *Store) RevokeOTPs(ctx context.Context, userID string) error {
	items, err := s.unusedOTPs(ctx, userID, "", nil)
	if err != nil {
		return err
	}
	for _, it := range items {
		ue, err := buildUpdateExpr(map[string]interface{}{fieldUsed: true})
		if err != nil {
			return err
		}
		ue.Names["#u"] = fieldUsed
		ue.Values[":false"] = &types.AttributeValueMemberBOOL{Value: false}
		_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(s.tables.OTPCodes),
			Key:                       compositeKey(fieldUserID, it.UserID, fieldOTPID, it.OTPID),
			UpdateExpression:          aws.String(ue.Expr),
			ConditionExpression:       aws.String("#u = :false"),
			ExpressionAttributeNames:  ue.Names,
			ExpressionAttributeValues: ue.Values,
		})
		if err != nil && !isConditionFailed(err) {
			return fmt.Errorf("revoke otp: %w", err)
		}
	}
	return nil
}

// ConsumeOTP flips one matching unused, unexpired code to used. Each flip is
// a conditional UpdateItem, so of two concurrent callers only one succeeds;
// a lost race moves on to the next candidate.
func (s *Store) ConsumeOTP(ctx context.Context, userID, code string, now time.Time) (bool, error) {
	nowMillis := now.UnixMilli()
	candidates, err := s.unusedOTPs(ctx, userID, code, &nowMillis)
	if err != nil {
		return false, err
	}
	for _, it := range candidates {
		_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:           aws.String(s.tables.OTPCodes),
			Key:                 compositeKey(fieldUserID, it.UserID, fieldOTPID, it.OTPID),
			UpdateExpression:    aws.String("SET #u = :true"),
			ConditionExpression: aws.String("#u = :false AND #x > :now AND #c = :code"),
			ExpressionAttributeNames: map[string]string{
				"#u": fieldUsed,
				"#x": fieldExpiresAt,
				"#c": fieldCode,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":true":  &types.AttributeValueMemberBOOL{Value: true},
				":false": &types.AttributeValueMemberBOOL{Value: false},
				":now":   &types.AttributeValueMemberN{Value: fmt.Sprint(nowMillis)},
				":code":  &types.AttributeValueMemberS{Value: code},
			},
		})
		if err == nil {
			return true, nil
		}
		if !isConditionFailed(err) {
			return false, fmt.Errorf("consume otp: %w", err)
		}
	}
	return false, nil
}

// unusedOTPs lists the user's unused codes, optionally narrowed to one code
// value and to rows expiring after notBefore.
func (s *Store) unusedOTPs(ctx context.Context, userID, code string, notBefore *int64) ([]otpItem, error) {
	filter := "#u = :false"
	names := map[string]string{"#pk": fieldUserID, "#u": fieldUsed}
	values := map[string]types.AttributeValue{
		":pk":    &types.AttributeValueMemberS{Value: userID},
		":false": &types.AttributeValueMemberBOOL{Value: false},
	}
	if code != "" {
		filter += " AND #c = :code"
		names["#c"] = fieldCode
		values[":code"] = &types.AttributeValueMemberS{Value: code}
	}
	if notBefore != nil {
		filter += " AND #x > :now"
		names["#x"] = fieldExpiresAt
		values[":now"] = &types.AttributeValueMemberN{Value: fmt.Sprint(*notBefore)}
	}

	p := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tables.OTPCodes),
		KeyConditionExpression:    aws.String("#pk = :pk"),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConsistentRead:            aws.Bool(true),
	})
	var items []otpItem
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query otps: %w", err)
		}
		var batch []otpItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal otps: %w", err)
		}
		items = append(items, batch...)
	}
	return items, nil
}
