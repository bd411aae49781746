// Package dynamo provides the DynamoDB client factory. Only this package
// imports the DynamoDB SDK; callers use the re-exported types and helpers.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Config holds DynamoDB connection parameters.
type Config struct {
	// Endpoint overrides the default AWS endpoint, e.g. a LocalStack URL.
	// Static test credentials are used when it is set.
	Endpoint string

	Region string

	// Timeout is the HTTP client timeout for DynamoDB requests.
	Timeout time.Duration
}

// Client wraps the AWS DynamoDB SDK client.
type Client struct {
	DB *dynamodb.Client
}

// NewClient creates a DynamoDB client configured from cfg.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.Endpoint != "" {
		opts = append(opts,
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider("test", "test", ""),
			),
		)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	if cfg.Timeout > 0 {
		awsCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	var dbOpts []func(*dynamodb.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		dbOpts = append(dbOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = &endpoint
		})
	}

	return &Client{
		DB: dynamodb.NewFromConfig(awsCfg, dbOpts...),
	}, nil
}

// Item operation types.
type (
	GetItemInput     = dynamodb.GetItemInput
	GetItemOutput    = dynamodb.GetItemOutput
	UpdateItemInput  = dynamodb.UpdateItemInput
	UpdateItemOutput = dynamodb.UpdateItemOutput
	DeleteItemInput  = dynamodb.DeleteItemInput
	DeleteItemOutput = dynamodb.DeleteItemOutput
)

// Attribute value types.
type (
	AttributeValue        = types.AttributeValue
	AttributeValueMemberS = types.AttributeValueMemberS
	AttributeValueMemberN = types.AttributeValueMemberN
)

// UpdateBuilder is the expression builder for UpdateExpression.
type UpdateBuilder = expression.UpdateBuilder

// Options is the DynamoDB client options type, re-exported for
// consumer-defined interfaces.
type Options = dynamodb.Options

// Bool returns a pointer to a bool value.
var Bool = aws.Bool

// String returns a pointer to a string value.
var String = aws.String

// MarshalMap serializes a Go value into an attribute value map.
var MarshalMap = attributevalue.MarshalMap

// UnmarshalMap deserializes an attribute value map into a Go value.
var UnmarshalMap = attributevalue.UnmarshalMap

// SetAttributes builds an update that sets every attribute in attrs.
func SetAttributes(attrs map[string]any) UpdateBuilder {
	var update UpdateBuilder
	for name, value := range attrs {
		update = update.Set(expression.Name(name), expression.Value(value))
	}
	return update
}

// UpdateExpression is a compiled update expression ready to be attached to
// an UpdateItemInput.
type UpdateExpression struct {
	Expression *string
	Names      map[string]string
	Values     map[string]AttributeValue
}

// BuildUpdate compiles update into an UpdateExpression.
func BuildUpdate(update UpdateBuilder) (UpdateExpression, error) {
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return UpdateExpression{}, fmt.Errorf("build update expression: %w", err)
	}
	return UpdateExpression{
		Expression: expr.Update(),
		Names:      expr.Names(),
		Values:     expr.Values(),
	}, nil
}

// IsResourceNotFound reports whether err is a ResourceNotFoundException,
// typically a missing table.
func IsResourceNotFound(err error) bool {
	var rnf *types.ResourceNotFoundException
	return errors.As(err, &rnf)
}

// ErrResourceNotFound returns a ResourceNotFoundException for tests.
func ErrResourceNotFound() error {
	return &types.ResourceNotFoundException{
		Message: aws.String("Requested resource not found"),
	}
}
