package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"notification-dispatcher/internal/common/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresClient_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	client := &PostgresClient{DB: db}

	mock.ExpectPing()
	assert.NoError(t, client.Ping(context.Background()))

	mock.ExpectClose()
	assert.NoError(t, client.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClient_Ping(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}

func TestNewRedis_RequiresAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestElasticsearchClient_Ping(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(status)
	}))
	defer srv.Close()

	client, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)

	assert.NoError(t, client.Ping(context.Background()))

	status = http.StatusServiceUnavailable
	assert.Error(t, client.Ping(context.Background()))
}

func TestNewPostgres_PoolFromConfig(t *testing.T) {
	client, err := NewPostgres(config.PostgresConfig{
		Host: "localhost", Port: 5432, User: "u", Database: "d", SSLMode: "disable",
		MaxConnections: 7, MaxIdle: 1, ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 7, client.GetDB().Stats().MaxOpenConnections)
}

func TestNewRedis_Options(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.RedisConfig
		wantPool int
		wantRead time.Duration
	}{
		{"defaults", config.RedisConfig{Address: "localhost:6379"}, 10, 3 * time.Second},
		{"configured", config.RedisConfig{Address: "localhost:6379", PoolSize: 4, ReadTimeout: time.Second}, 4, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewRedis(tt.cfg)
			require.NoError(t, err)
			defer client.Close()

			opts := client.GetClient().Options()
			assert.Equal(t, tt.wantPool, opts.PoolSize)
			assert.Equal(t, tt.wantRead, opts.ReadTimeout)
		})
	}
}

func TestNewElasticsearch_Retry(t *testing.T) {
	newFlakyServer := func(t *testing.T, hits *int32) *httptest.Server {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Elastic-Product", "Elasticsearch")
			if atomic.AddInt32(hits, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(srv.Close)
		return srv
	}

	t.Run("retries unavailable node", func(t *testing.T) {
		var hits int32
		srv := newFlakyServer(t, &hits)

		client, err := NewElasticsearch(config.ElasticsearchConfig{
			URL:            srv.URL,
			MaxRetries:     2,
			RetryOnStatus:  []int{503},
			RequestTimeout: time.Second,
		})
		require.NoError(t, err)

		assert.NoError(t, client.Ping(context.Background()))
		assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	})

	t.Run("retry disabled", func(t *testing.T) {
		var hits int32
		srv := newFlakyServer(t, &hits)

		client, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL, DisableRetry: true})
		require.NoError(t, err)

		assert.Error(t, client.Ping(context.Background()))
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})
}
