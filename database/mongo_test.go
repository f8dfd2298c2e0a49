package database

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type priced struct {
	Price decimal.Decimal `bson:"price"`
}

func TestDecimalStoredAsDecimal128(t *testing.T) {
	data, err := bson.MarshalWithRegistry(Registry(), priced{Price: decimal.RequireFromString("12.75")})
	require.NoError(t, err)

	raw := bson.Raw(data).Lookup("price")
	assert.Equal(t, bsontype.Decimal128, raw.Type)

	var out priced
	require.NoError(t, bson.UnmarshalWithRegistry(Registry(), data, &out))
	assert.Equal(t, "12.75", out.Price.StringFixed(2))
}

func TestDecimalDecodesLegacyNumbers(t *testing.T) {
	cases := map[string]bson.M{
		"4.5":  {"price": 4.5},
		"7":    {"price": int32(7)},
		"9":    {"price": int64(9)},
		"0.30": {"price": "0.30"},
	}
	for want, doc := range cases {
		data, err := bson.Marshal(doc)
		require.NoError(t, err)

		var out priced
		require.NoError(t, bson.UnmarshalWithRegistry(Registry(), data, &out))
		assert.True(t, out.Price.Equal(decimal.RequireFromString(want)), "want %s got %s", want, out.Price)
	}
}
