package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PaulBabatuyi/dog-adoption-api/internal/adoption"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/auth"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/data"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/db"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/identity"
)

func TestMongoAdoptionFlow(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}

	ctx := context.Background()
	dbClient, err := db.New(ctx, uri, "dog_adoption_api_test")
	require.NoError(t, err)
	defer func() {
		_ = dbClient.UsersCollection().Drop(context.Background())
		_ = dbClient.DogsCollection().Drop(context.Background())
		_ = dbClient.Close(context.Background())
	}()
	require.NoError(t, dbClient.CreateIndexes(ctx))

	users := data.NewUsersStore(dbClient.UsersCollection())
	dogs := data.NewDogsStore(dbClient.DogsCollection())
	tokens := auth.NewJWTManager("test-secret", time.Hour)
	log := zap.NewNop()

	srv := newServer(
		identity.NewService(users, tokens, log),
		adoption.NewEngine(dogs, users, adoption.Options{}, log),
		auth.NewGuard(tokens, users, true),
		dbClient,
		log,
		routerOptions{AppEnv: "test"},
	)
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	api := &testAPI{t: t, client: resty.New().SetBaseURL(ts.URL)}
	tokenA, _ := api.register("mongo-a")
	tokenB, _ := api.register("mongo-b")
	tokenC, _ := api.register("mongo-c")

	maxDog := api.createDog(tokenA, "Max")

	code, resp := api.do(http.MethodPut, "/api/dogs/"+maxDog.ID+"/adopt", tokenB, map[string]string{"thankYouMessage": "thanks"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	adopted := decode[adoption.DogView](t, resp)
	assert.Equal(t, "mongo-b", adopted.AdoptedBy.Username)

	code, _ = api.do(http.MethodPut, "/api/dogs/"+maxDog.ID+"/adopt", tokenC, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = api.do(http.MethodPut, "/api/dogs/not-an-object-id/adopt", tokenC, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = api.do(http.MethodGet, "/api/dogs?status=adopted", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[adoption.Page](t, resp).Dogs, 1)
}
