package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"wargabantuin/internal/domain"
)

type fakeDynamo struct {
	getOut       *dynamodb.GetItemOutput
	getErr       error
	putErr       error
	lastGetInput *dynamodb.GetItemInput
	lastPutInput *dynamodb.PutItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "geocode-cache")
	require.NoError(t, err)
	c.now = func() time.Time { return fixedNow }
	return c
}

func makePlaceItem(lat, lon, name, ttl string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":          &types.AttributeValueMemberS{Value: "GEO#binjai"},
		"SK":          &types.AttributeValueMemberS{Value: skPlace},
		"lat":         &types.AttributeValueMemberN{Value: lat},
		"lon":         &types.AttributeValueMemberN{Value: lon},
		"displayName": &types.AttributeValueMemberS{Value: name},
		"ttl":         &types.AttributeValueMemberN{Value: ttl},
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "t")
	require.Error(t, err)
	_, err = New(&fakeDynamo{}, " ")
	require.Error(t, err)
}

func TestNormalizeQuery(t *testing.T) {
	require.Equal(t, "kota binjai", NormalizeQuery("  Kota   BINJAI "))
	require.Equal(t, "", NormalizeQuery("   "))
}

func TestGetPlace_Hit(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: makePlaceItem("3.6", "98.48", "Binjai", "1900000000")}}
	c := mustNewClient(t, db)

	got, ok, err := c.GetPlace(context.Background(), " Binjai ")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.Place{Coordinates: domain.Coordinates{Lat: 3.6, Lon: 98.48}, DisplayName: "Binjai"}, got)

	pk := db.lastGetInput.Key["PK"].(*types.AttributeValueMemberS)
	require.Equal(t, "GEO#binjai", pk.Value)
	require.Equal(t, "geocode-cache", *db.lastGetInput.TableName)
}

func TestGetPlace_Miss(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{}})
	_, ok, err := c.GetPlace(context.Background(), "Binjai")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetPlace_ExpiredTTLIsMiss(t *testing.T) {
	expired := "1000"
	c := mustNewClient(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: makePlaceItem("3.6", "98.48", "Binjai", expired)}})
	_, ok, err := c.GetPlace(context.Background(), "Binjai")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetPlace_BadItem(t *testing.T) {
	item := makePlaceItem("3.6", "98.48", "Binjai", "1900000000")
	item["lat"] = &types.AttributeValueMemberS{Value: "3.6"}
	c := mustNewClient(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: item}})
	_, _, err := c.GetPlace(context.Background(), "Binjai")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a number")
}

func TestGetPlace_APIError(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{getErr: errors.New("throttled")})
	_, _, err := c.GetPlace(context.Background(), "Binjai")
	require.ErrorContains(t, err, "throttled")
}

func TestPutPlace_WritesItemWithTTL(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	err := c.PutPlace(context.Background(), "Kota Binjai", domain.Place{Coordinates: domain.Coordinates{Lat: 3.6, Lon: 98.48}, DisplayName: "Binjai"})
	require.NoError(t, err)

	item := db.lastPutInput.Item
	require.Equal(t, "GEO#kota binjai", item["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "3.6", item["lat"].(*types.AttributeValueMemberN).Value)
	require.Equal(t, "98.48", item["lon"].(*types.AttributeValueMemberN).Value)

	ttl, err := intAttr(item, "ttl")
	require.NoError(t, err)
	require.Equal(t, fixedNow.Add(ttlDuration).Unix(), ttl)
}

func TestPutPlace_EmptyQuery(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{})
	err := c.PutPlace(context.Background(), "  ", domain.Place{})
	require.Error(t, err)
}

func TestPutPlace_APIError(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{putErr: errors.New("conditional check failed")})
	err := c.PutPlace(context.Background(), "Binjai", domain.Place{})
	require.ErrorContains(t, err, "conditional check failed")
}
