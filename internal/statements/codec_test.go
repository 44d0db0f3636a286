package statements

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storedDetails = `{"contractorName":"Gulf Aggregates","date":"01/06/2024","lpoNo":"LPO-9","site":"North","items":[` +
	`{"id":"inv-12","originalId":12,"date":"03/05/2024","description":"RVT/MAY/24/GA/001","credit":157.5,"debit":0,"balance":157.5,"vehicle":"A 1234","type":"INVOICE"},` +
	`{"id":"pay-3","originalId":3,"date":"04/05/2024","description":"Cheque - 77","credit":0,"debit":100,"balance":57.5,"vehicle":"","type":"PAYMENT"}]}`

func TestDetailsRoundTripIsExact(t *testing.T) {
	details, ok := ParseDetails(storedDetails)
	require.True(t, ok)
	require.Len(t, details.Items, 2)
	assert.Equal(t, InvoiceKey(12), details.Items[0].Key)
	assert.Equal(t, PaymentKey(3), details.Items[1].Key)

	encoded, err := details.Encode()
	require.NoError(t, err)
	assert.Equal(t, storedDetails, encoded)
}

func TestEncodeRecomputesStaleBalances(t *testing.T) {
	stale := `{"contractorName":"","date":"","lpoNo":"","site":"","items":[{"id":"inv-1","originalId":1,"date":"","description":"","credit":10,"debit":0,"balance":999,"vehicle":"","type":"INVOICE"}]}`
	details, ok := ParseDetails(stale)
	require.True(t, ok)
	encoded, err := details.Encode()
	require.NoError(t, err)
	assert.Contains(t, encoded, `"balance":10,`)
}

func TestParseDetailsFallsBackToEmptyShell(t *testing.T) {
	for _, raw := range []string{"", "   ", "not json", "[1,2]", `"text"`, `{"items":"nope"}`} {
		details, ok := ParseDetails(raw)
		assert.Empty(t, details.Items, raw)
		assert.NotNil(t, details.Items, raw)
		if raw == "" || raw == "   " {
			assert.True(t, ok)
		} else {
			assert.False(t, ok, raw)
		}
	}

	encoded, err := EmptyDetails().Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"contractorName":"","date":"","lpoNo":"","site":"","items":[]}`, encoded)
}

func TestLegacyIdsArePreserved(t *testing.T) {
	raw := `{"items":[` +
		`{"id":"manual-1","originalId":null,"date":"","description":"Opening balance","credit":"250.00","debit":null,"balance":0,"vehicle":"","type":"MANUAL"},` +
		`{"id":"legacy-7","originalId":7,"date":"","description":"Cash","credit":0,"debit":50,"balance":0,"vehicle":"","type":"PAYMENT"}]}`
	details, ok := ParseDetails(raw)
	require.True(t, ok)
	require.Len(t, details.Items, 2)
	assert.True(t, details.Items[0].Key.IsZero())
	assert.Equal(t, "250", details.Items[0].Credit.String())
	assert.Equal(t, PaymentKey(7), details.Items[1].Key)

	encoded, err := details.Encode()
	require.NoError(t, err)

	var wire struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(encoded), &wire))
	assert.Equal(t, "manual-1", wire.Items[0]["id"])
	assert.Nil(t, wire.Items[0]["originalId"])
	assert.Equal(t, "MANUAL", wire.Items[0]["type"])
	assert.Equal(t, "legacy-7", wire.Items[1]["id"])
	assert.Equal(t, float64(7), wire.Items[1]["originalId"])
	assert.Equal(t, float64(200), wire.Items[1]["balance"])
}

func TestParseItemKey(t *testing.T) {
	key, ok := ParseItemKey("inv-42")
	require.True(t, ok)
	assert.Equal(t, InvoiceKey(42), key)

	for _, raw := range []string{"inv-", "pay-x", "inv-0", "foo-1", ""} {
		_, ok := ParseItemKey(raw)
		assert.False(t, ok, raw)
	}
}

func TestNumericStringsAreWrittenAsNumbers(t *testing.T) {
	raw := `{"contractorName":"","date":"","lpoNo":"","site":"","items":[` +
		`{"id":"inv-5","originalId":"5","date":"","description":"","credit":"120.50","debit":"0","balance":"120.5","vehicle":"","type":"INVOICE"}]}`
	details, ok := ParseDetails(raw)
	require.True(t, ok)
	require.Len(t, details.Items, 1)
	assert.Equal(t, "120.5", details.Items[0].Credit.String())

	encoded, err := details.Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"contractorName":"","date":"","lpoNo":"","site":"","items":[`+
		`{"id":"inv-5","originalId":5,"date":"","description":"","credit":120.5,"debit":0,"balance":120.5,"vehicle":"","type":"INVOICE"}]}`, encoded)

	again, ok := ParseDetails(encoded)
	require.True(t, ok)
	reencoded, err := again.Encode()
	require.NoError(t, err)
	assert.Equal(t, encoded, reencoded)
}
