// Package dynamo keeps the ledger in a DynamoDB table.
//
// The table has a string partition key "pk" and a numeric sort key "sk".
// Ledger records live under pk=LEDGER with sk set to their ID, so a Query in
// ascending sk order yields insertion order. IDs come from an atomic counter
// item at pk=META, sk=0.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"tracker/internal/core"
)

const (
	ledgerPartition  = "LEDGER"
	counterPartition = "META"
)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Config selects the table and, for local testing, a custom endpoint.
type Config struct {
	Region   string
	Table    string
	Endpoint string
}

type Store struct {
	client API
	table  string
}

type item struct {
	PK          string  `dynamodbav:"pk"`
	SK          int64   `dynamodbav:"sk"`
	Description string  `dynamodbav:"description"`
	Amount      float64 `dynamodbav:"amount"`
	Date        string  `dynamodbav:"date"`
	Category    string  `dynamodbav:"category,omitempty"`
}

// New loads the default AWS configuration and returns a store for cfg.Table.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Table == "" {
		return nil, errors.New("dynamodb table name is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client, cfg.Table), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client API, table string) *Store {
	return &Store{client: client, table: table}
}

func (s *Store) Load(ctx context.Context) ([]core.Transaction, error) {
	txs := []core.Transaction{}
	p := dynamodb.NewQueryPaginator(s.client, s.ledgerQuery(""))
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, core.Unavailable("load", err)
		}
		for _, av := range page.Items {
			var it item
			if err := attributevalue.UnmarshalMap(av, &it); err != nil {
				return nil, core.Unavailable("load", fmt.Errorf("unmarshal item: %w", err))
			}
			txs = append(txs, it.transaction())
		}
	}
	return txs, nil
}

func (s *Store) Append(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	id, err := s.nextID(ctx)
	if err != nil {
		return core.Transaction{}, core.Unavailable("append", err)
	}
	tx.ID = id

	av, err := attributevalue.MarshalMap(newItem(tx))
	if err != nil {
		return core.Transaction{}, core.Unavailable("append", fmt.Errorf("marshal item: %w", err))
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if err != nil {
		return core.Transaction{}, core.Unavailable("append", err)
	}
	return tx, nil
}

// RemoveAt walks the ledger keys in order to find the index-th record.
func (s *Store) RemoveAt(ctx context.Context, index int) error {
	if index < 0 {
		return core.IndexNotFound(index)
	}

	seen := 0
	p := dynamodb.NewQueryPaginator(s.client, s.ledgerQuery("sk"))
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return core.Unavailable("remove", err)
		}
		if index < seen+len(page.Items) {
			var it item
			if err := attributevalue.UnmarshalMap(page.Items[index-seen], &it); err != nil {
				return core.Unavailable("remove", fmt.Errorf("unmarshal key: %w", err))
			}
			err := s.delete(ctx, it.SK)
			if errors.Is(err, core.ErrNotFound) {
				// Removed concurrently between the query and the delete.
				return core.IndexNotFound(index)
			}
			return err
		}
		seen += len(page.Items)
	}
	return core.IndexNotFound(index)
}

func (s *Store) Remove(ctx context.Context, id int64) error {
	if id <= 0 {
		return core.IDNotFound(id)
	}
	return s.delete(ctx, id)
}

func (s *Store) delete(ctx context.Context, id int64) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.table),
		Key:                 key(ledgerPartition, id),
		ConditionExpression: aws.String("attribute_exists(pk)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return core.IDNotFound(id)
	}
	return core.Unavailable("remove", err)
}

func (s *Store) nextID(ctx context.Context) (int64, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              key(counterPartition, 0),
		UpdateExpression: aws.String("ADD seq :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("increment id counter: %w", err)
	}
	var id int64
	if err := attributevalue.Unmarshal(out.Attributes["seq"], &id); err != nil {
		return 0, fmt.Errorf("decode id counter: %w", err)
	}
	return id, nil
}

func (s *Store) ledgerQuery(projection string) *dynamodb.QueryInput {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: ledgerPartition},
		},
		ScanIndexForward: aws.Bool(true),
		ConsistentRead:   aws.Bool(true),
	}
	if projection != "" {
		in.ProjectionExpression = aws.String(projection)
	}
	return in
}

func key(pk string, sk int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: pk},
		"sk": &types.AttributeValueMemberN{Value: strconv.FormatInt(sk, 10)},
	}
}

func newItem(tx core.Transaction) item {
	return item{
		PK:          ledgerPartition,
		SK:          tx.ID,
		Description: tx.Description,
		Amount:      tx.Amount,
		Date:        tx.Date,
		Category:    tx.Category,
	}
}

func (it item) transaction() core.Transaction {
	return core.Transaction{
		ID:          it.SK,
		Description: it.Description,
		Amount:      it.Amount,
		Date:        it.Date,
		Category:    it.Category,
	}
}
