package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registrationState struct {
	Step  string `json:"step"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func TestSessionStorePutAndGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewSessionStore(client, 30*time.Minute)

	state := registrationState{Step: "phone", Name: "Maral"}
	mock.ExpectSet("session:777001", []byte(`{"step":"phone","name":"Maral","phone":""}`), 30*time.Minute).SetVal("OK")

	require.NoError(t, store.Put(context.Background(), 777001, state))

	mock.ExpectGet("session:777001").SetVal(`{"step":"phone","name":"Maral","phone":""}`)

	var loaded registrationState
	require.NoError(t, store.Get(context.Background(), 777001, &loaded))
	assert.Equal(t, state, loaded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStoreGetMissing(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewSessionStore(client, time.Minute)

	mock.ExpectGet("session:1").RedisNil()

	var dst registrationState
	err := store.Get(context.Background(), 1, &dst)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreTouchMissing(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewSessionStore(client, time.Minute)

	mock.ExpectExpire("session:2", time.Minute).SetVal(false)

	err := store.Touch(context.Background(), 2)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreDrop(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewSessionStore(client, time.Minute)

	mock.ExpectDel("session:3").SetVal(1)

	assert.NoError(t, store.Drop(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
