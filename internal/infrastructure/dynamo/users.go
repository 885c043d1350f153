package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-auth-gate/internal/domain"
)

// UpsertUser writes u only when no row exists for its email, then returns the
// stored row. Email is the table's hash key, so the condition is race-free.
func (s *Store) UpsertUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.tables.Users),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#e)"),
		ExpressionAttributeNames: map[string]string{"#e": fieldEmail},
	})
	if err == nil {
		return u, nil
	}
	if !isConditionFailed(err) {
		return nil, fmt.Errorf("put user: %w", err)
	}
	return s.userByEmail(ctx, u.Email)
}

// GetUser looks the user up through the user_id GSI. The index is eventually
// consistent, so a user created moments ago may be missing from it; in that
// case the email is read from the user's OTP rows and the base table is
// read by key with a consistent read.
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tables.Users),
		IndexName:                 aws.String(indexUserID),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": fieldUserID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: userID}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if len(out.Items) == 0 {
		return s.userViaOTP(ctx, userID)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

func (s *Store) userByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Users),
		Key:            strKey(fieldEmail, email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

func (s *Store) userViaOTP(ctx context.Context, userID string) (*domain.User, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tables.OTPCodes),
		KeyConditionExpression:    aws.String("#u = :u"),
		ProjectionExpression:      aws.String("#e"),
		ExpressionAttributeNames:  map[string]string{"#u": fieldUserID, "#e": fieldEmail},
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": &types.AttributeValueMemberS{Value: userID}},
		ConsistentRead:            aws.Bool(true),
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query otp email: %w", err)
	}
	var row struct {
		Email string `dynamodbav:"email"`
	}
	if len(out.Items) > 0 {
		if err := attributevalue.UnmarshalMap(out.Items[0], &row); err != nil {
			return nil, fmt.Errorf("unmarshal otp email: %w", err)
		}
	}
	if row.Email == "" {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	u, err := s.userByEmail(ctx, row.Email)
	if err != nil {
		return nil, err
	}
	if u.UserID != userID {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return u, nil
}
