package tokenstore

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/todoclient/internal/domain"
	"github.com/aelexs/todoclient/internal/dynamo"
)

var _ Backend = (*DynamoBackend)(nil)

// entryDynamoDB is the subset of the DynamoDB API the backend uses. The
// SDK client satisfies it.
type entryDynamoDB interface {
	GetItem(ctx context.Context, params *dynamo.GetItemInput, optFns ...func(*dynamo.Options)) (*dynamo.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamo.UpdateItemInput, optFns ...func(*dynamo.Options)) (*dynamo.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamo.DeleteItemInput, optFns ...func(*dynamo.Options)) (*dynamo.DeleteItemOutput, error)
}

// entryItem is the item shape of the session table. The table's partition
// key is the string attribute "key"; ttl is the table's TTL attribute in
// Unix seconds.
type entryItem struct {
	Key       string `dynamodbav:"key"`
	Value     string `dynamodbav:"value"`
	UpdatedAt string `dynamodbav:"updated_at"`
	ExpiresAt string `dynamodbav:"expires_at,omitempty"`
	TTL       int64  `dynamodbav:"ttl,omitempty"`
}

// DynamoBackend stores one item per entry in a DynamoDB table.
type DynamoBackend struct {
	db        entryDynamoDB
	tableName string
	ttl       time.Duration
	clock     domain.Clock
}

// NewDynamoBackend creates a DynamoBackend backed by the given client.
// Items written with a positive ttl carry expires_at and ttl attributes;
// DynamoDB TTL removes them some time after expiry, so Get also skips
// expired items.
func NewDynamoBackend(db entryDynamoDB, tableName string, ttl time.Duration, clock domain.Clock) *DynamoBackend {
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &DynamoBackend{db: db, tableName: tableName, ttl: ttl, clock: clock}
}

func (d *DynamoBackend) keyOf(key string) map[string]dynamo.AttributeValue {
	return map[string]dynamo.AttributeValue{
		"key": &dynamo.AttributeValueMemberS{Value: key},
	}
}

func (d *DynamoBackend) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := tracer.Start(ctx, "dynamo.tokenstore.get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "GetItem"),
	)

	out, err := d.db.GetItem(ctx, &dynamo.GetItemInput{
		TableName:      &d.tableName,
		Key:            d.keyOf(key),
		ConsistentRead: dynamo.Bool(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", false, d.wrap("get", key, err)
	}
	if len(out.Item) == 0 {
		return "", false, nil
	}

	var item entryItem
	if err := dynamo.UnmarshalMap(out.Item, &item); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", false, fmt.Errorf("unmarshal %q: %w", key, err)
	}
	if item.TTL > 0 && !d.clock.Now().Before(time.Unix(item.TTL, 0)) {
		return "", false, nil
	}
	return item.Value, true, nil
}

func (d *DynamoBackend) Set(ctx context.Context, key, value string) error {
	ctx, span := tracer.Start(ctx, "dynamo.tokenstore.set")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "UpdateItem"),
	)

	now := d.clock.Now().UTC()
	attrs := map[string]any{
		"value":      value,
		"updated_at": now.Format(time.RFC3339),
	}
	if d.ttl > 0 {
		expiresAt := now.Add(d.ttl)
		attrs["expires_at"] = expiresAt.Format(time.RFC3339)
		attrs["ttl"] = expiresAt.Unix()
	}
	expr, err := dynamo.BuildUpdate(dynamo.SetAttributes(attrs))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("set %q: %w", key, err)
	}

	_, err = d.db.UpdateItem(ctx, &dynamo.UpdateItemInput{
		TableName:                 &d.tableName,
		Key:                       d.keyOf(key),
		UpdateExpression:          expr.Expression,
		ExpressionAttributeNames:  expr.Names,
		ExpressionAttributeValues: expr.Values,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return d.wrap("set", key, err)
	}
	return nil
}

func (d *DynamoBackend) Delete(ctx context.Context, keys ...string) error {
	ctx, span := tracer.Start(ctx, "dynamo.tokenstore.delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "DeleteItem"),
		attribute.Int("db.item_count", len(keys)),
	)

	for _, key := range keys {
		_, err := d.db.DeleteItem(ctx, &dynamo.DeleteItemInput{
			TableName: &d.tableName,
			Key:       d.keyOf(key),
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return d.wrap("delete", key, err)
		}
	}
	return nil
}

func (d *DynamoBackend) wrap(op, key string, err error) error {
	if dynamo.IsResourceNotFound(err) {
		return fmt.Errorf("%s %q: table %q: %w: %w", op, key, d.tableName, domain.ErrNotFound, err)
	}
	return fmt.Errorf("%s %q: %w", op, key, err)
}
