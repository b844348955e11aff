package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "concierge/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// IDs must be valid, non-empty, non-nil UUIDs.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseRoomID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseReservationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety between ID
// kinds. Distinctness at runtime is checked here; cross-type assignment does
// not compile.
func TestTypeDistinction(t *testing.T) {
	userID := UserID(uuid.New())
	roomID := RoomID(uuid.New())
	assert.NotEqual(t, uuid.UUID(userID), uuid.UUID(roomID))
}

// TestIDJSONEncoding verifies IDs cross the wire as canonical UUID strings,
// not as the underlying byte array, in both directions.
func TestIDJSONEncoding(t *testing.T) {
	raw := "11111111-2222-3333-4444-555555555555"
	userID, err := ParseUserID(raw)
	require.NoError(t, err)

	payload := struct {
		ID UserID `json:"id"`
	}{ID: userID}

	encoded, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+raw+`"}`, string(encoded))

	var decoded struct {
		ID UserID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, userID, decoded.ID)
}

func TestIDJSONEncodingAllKinds(t *testing.T) {
	u := uuid.New()
	want := `"` + u.String() + `"`

	for name, v := range map[string]any{
		"user":        UserID(u),
		"session":     SessionID(u),
		"room":        RoomID(u),
		"reservation": ReservationID(u),
		"payment":     PaymentID(u),
	} {
		t.Run(name, func(t *testing.T) {
			encoded, err := json.Marshal(v)
			require.NoError(t, err)
			assert.Equal(t, want, string(encoded))
		})
	}
}
