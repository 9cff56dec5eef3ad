package database

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernandosena/bot-whatsapp/models"
	"github.com/fernandosena/bot-whatsapp/utils"
)

func TestMain(m *testing.M) {
	utils.Init("error")
	os.Exit(m.Run())
}

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndReadDeliveries(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.RecordDelivery(&models.Delivery{
		Phone:      "(11) 98765-4321",
		JID:        "5511987654321@s.whatsapp.net",
		Name:       "Empresa Teste",
		FileName:   "voice.wav",
		Transcoded: true,
		Success:    true,
		Timestamp:  time.Now(),
	}))
	require.NoError(t, db.RecordDelivery(&models.Delivery{
		Phone:     "11912345678",
		JID:       "5511912345678@s.whatsapp.net",
		Success:   false,
		Error:     "falha ao enviar áudio PTT: stream closed",
		Timestamp: time.Now(),
	}))

	deliveries, err := db.GetRecentDeliveries(50)
	require.NoError(t, err)
	require.Len(t, deliveries, 2)

	byPhone, err := db.GetDeliveriesByPhone("(11) 98765-4321", 50)
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.True(t, byPhone[0].Transcoded)
	assert.True(t, byPhone[0].Success)
	assert.Equal(t, "Empresa Teste", byPhone[0].Name)
	assert.Equal(t, "voice.wav", byPhone[0].FileName)
}

func TestGetStats(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.RecordDelivery(&models.Delivery{
		Phone: "a", JID: "a@s.whatsapp.net", Success: true, Timestamp: time.Now(),
	}))
	require.NoError(t, db.RecordDelivery(&models.Delivery{
		Phone: "b", JID: "b@s.whatsapp.net", Success: false, Error: "x", Timestamp: time.Now(),
	}))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalDeliveries)
	assert.Equal(t, int64(1), stats.Delivered)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(2), stats.DeliveriesToday)
}

func TestGetRecentDeliveriesEmpty(t *testing.T) {
	db := newTestDatabase(t)

	deliveries, err := db.GetRecentDeliveries(10)
	require.NoError(t, err)
	assert.Empty(t, deliveries)
}
