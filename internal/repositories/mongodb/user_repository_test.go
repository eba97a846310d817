package mongodb

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/stretchr/testify/assert"
)

func TestIdentityLockKeys(t *testing.T) {
	assert.Equal(t,
		[]string{"email:ada@example.com", "phone:+15551234567"},
		identityLockKeys("ada@example.com", "+15551234567"))

	// A missing value must not produce a lock row that every
	// registration would contend on.
	assert.Equal(t, []string{"email:ada@example.com"}, identityLockKeys("ada@example.com", ""))
	assert.Equal(t, []string{"phone:+15551234567"}, identityLockKeys("", "+15551234567"))
	assert.Empty(t, identityLockKeys("", ""))
}

func TestIdentityFilter(t *testing.T) {
	filter := identityFilter("ada@example.com", "+15551234567")
	assert.Equal(t, []bson.M{
		{"email": "ada@example.com"},
		{"phone_number": "+15551234567"},
	}, filter["$or"])

	filter = identityFilter("ada@example.com", "")
	assert.Equal(t, []bson.M{{"email": "ada@example.com"}}, filter["$or"])
}
