package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-auth-gate/internal/domain"
)

func (s *Store) ListAllowedPatterns(ctx context.Context) ([]string, error) {
	p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.tables.AllowedEmails),
	})
	var patterns []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan allowed emails: %w", err)
		}
		var batch []domain.AllowedEmailPattern
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal allowed emails: %w", err)
		}
		for _, b := range batch {
			patterns = append(patterns, b.Pattern)
		}
	}
	return patterns, nil
}

func (s *Store) AddAllowedPattern(ctx context.Context, ap *domain.AllowedEmailPattern) error {
	item, err := attributevalue.MarshalMap(ap)
	if err != nil {
		return fmt.Errorf("marshal allowed email: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.AllowedEmails),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put allowed email: %w", err)
	}
	return nil
}
