package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"wargabantuin/internal/domain"
)

const (
	skPlace     = "PLACE#"
	ttlDuration = 30 * 24 * time.Hour // 30-day TTL
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client wraps a DynamoDB table used as a durable geocode cache shared by
// every process that talks to the geocoder.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

// NormalizeQuery folds case and whitespace so "  Kota  Binjai" and
// "kota binjai" share an entry.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// geoPK returns the DynamoDB partition key for a geocode query.
func geoPK(query string) string {
	return "GEO#" + NormalizeQuery(query)
}

// ttlValue returns a Unix timestamp 30 days after now.
func (c *Client) ttlValue() int64 {
	return c.now().Add(ttlDuration).Unix()
}

// GetPlace returns the cached geocode result for query. The boolean is false
// on a miss, including entries whose TTL has passed but that DynamoDB has not
// swept yet.
func (c *Client) GetPlace(ctx context.Context, query string) (domain.Place, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: geoPK(query)},
			"SK": &types.AttributeValueMemberS{Value: skPlace},
		},
	})
	if err != nil {
		return domain.Place{}, false, fmt.Errorf("repository: GetPlace get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Place{}, false, nil
	}

	ttl, err := intAttr(out.Item, "ttl")
	if err == nil && ttl <= c.now().Unix() {
		return domain.Place{}, false, nil
	}

	place, err := itemToPlace(out.Item)
	if err != nil {
		return domain.Place{}, false, fmt.Errorf("repository: GetPlace unmarshal: %w", err)
	}
	return place, true, nil
}

// PutPlace stores a geocode result for query.
func (c *Client) PutPlace(ctx context.Context, query string, place domain.Place) error {
	if NormalizeQuery(query) == "" {
		return errors.New("repository: PutPlace: query is required")
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      c.placeItem(query, place),
	})
	if err != nil {
		return fmt.Errorf("repository: PutPlace: %w", err)
	}
	return nil
}

func (c *Client) placeItem(query string, place domain.Place) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":          &types.AttributeValueMemberS{Value: geoPK(query)},
		"SK":          &types.AttributeValueMemberS{Value: skPlace},
		"query":       &types.AttributeValueMemberS{Value: NormalizeQuery(query)},
		"lat":         &types.AttributeValueMemberN{Value: strconv.FormatFloat(place.Lat, 'f', -1, 64)},
		"lon":         &types.AttributeValueMemberN{Value: strconv.FormatFloat(place.Lon, 'f', -1, 64)},
		"displayName": &types.AttributeValueMemberS{Value: place.DisplayName},
		"ttl":         &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", c.ttlValue())},
	}
}

// itemToPlace converts a DynamoDB attribute map to a Place.
func itemToPlace(item map[string]types.AttributeValue) (domain.Place, error) {
	lat, err := floatAttr(item, "lat")
	if err != nil {
		return domain.Place{}, err
	}
	lon, err := floatAttr(item, "lon")
	if err != nil {
		return domain.Place{}, err
	}
	name, _ := strAttr(item, "displayName") // allow empty

	return domain.Place{
		Coordinates: domain.Coordinates{Lat: lat, Lon: lon},
		DisplayName: name,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func numAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a number", key)
	}
	return n.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int64, error) {
	raw, err := numAttr(item, key)
	if err != nil {
		return 0, err
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

func floatAttr(item map[string]types.AttributeValue, key string) (float64, error) {
	raw, err := numAttr(item, key)
	if err != nil {
		return 0, err
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
