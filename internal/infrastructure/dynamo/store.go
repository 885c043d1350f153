package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-auth-gate/internal/config"
)

// Store implements the identity store over three DynamoDB tables.
type Store struct {
	client API
	tables config.DynamoTables
}

func NewStore(client API, tables config.DynamoTables) *Store {
	return &Store{client: client, tables: tables}
}

// Ping checks that every table is reachable.
func (s *Store) Ping(ctx context.Context) error {
	for _, name := range []string{s.tables.Users, s.tables.OTPCodes, s.tables.AllowedEmails} {
		if _, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}); err != nil {
			return fmt.Errorf("describe table %s: %w", name, err)
		}
	}
	return nil
}
