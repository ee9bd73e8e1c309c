package client_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/goliatone/go-storeform/pkg/client"
	"github.com/goliatone/go-storeform/pkg/model"
	"github.com/goliatone/go-storeform/pkg/payload"
	"github.com/goliatone/go-storeform/pkg/testsupport"
)

func TestGetByID_UnwrapsEnvelope(t *testing.T) {
	backend := testsupport.NewBackend(t,
		testsupport.WithRecord("coupon", "7", map[string]any{"id": float64(7), "coupon_title": "SAVE10"}),
	)
	cl, err := client.New(backend.URL())
	require.NoError(t, err)

	record, err := cl.GetByID(testsupport.Context(), "/coupon/getbyid", "7")
	require.NoError(t, err)
	if diff := cmp.Diff(map[string]any{"id": float64(7), "coupon_title": "SAVE10"}, record); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	backend := testsupport.NewBackend(t)
	cl, err := client.New(backend.URL())
	require.NoError(t, err)

	_, err = cl.GetByID(testsupport.Context(), "/coupon/getbyid", "404")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, "Record not found", apiErr.Message)
}

func TestList(t *testing.T) {
	items := []map[string]any{{"id": float64(1), "name": "Dairy"}, {"id": float64(2), "name": "Bakery"}}
	backend := testsupport.NewBackend(t, testsupport.WithList("category", items))
	cl, err := client.New(backend.URL())
	require.NoError(t, err)

	got, err := cl.List(testsupport.Context(), "/category/all")
	require.NoError(t, err)
	if diff := cmp.Diff(items, got); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func settingPayload(t *testing.T) payload.Payload {
	t.Helper()
	form := model.Form{
		Entity: "setting",
		Fields: []model.Field{{Name: "store_name", Kind: model.KindText}},
	}
	p, err := payload.Build(form, map[string]any{"store_name": "Corner"}, "")
	require.NoError(t, err)
	return p
}

func TestUpsert_SendsBearerAndStoreHeader(t *testing.T) {
	backend := testsupport.NewBackend(t, testsupport.WithBearer("secret"))
	cl, err := client.New(backend.URL(),
		client.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "secret"})),
		client.WithStoreID("store-9"),
	)
	require.NoError(t, err)

	resp, err := cl.Upsert(testsupport.Context(), "/setting/upsert", settingPayload(t))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	require.Equal(t, "Saved successfully", resp.Message)

	upserts := backend.Upserts()
	require.Len(t, upserts, 1)
	require.Equal(t, "store-9", upserts[0].Header.Get(client.StoreHeader))
	require.Equal(t, "Corner", upserts[0].JSON["store_name"])
}

func TestUpsert_Unauthorized(t *testing.T) {
	backend := testsupport.NewBackend(t, testsupport.WithBearer("secret"))
	cl, err := client.New(backend.URL())
	require.NoError(t, err)

	_, err = cl.Upsert(testsupport.Context(), "/setting/upsert", settingPayload(t))
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "Unauthorized", apiErr.Message)
}

func TestUpsert_APIErrorFields(t *testing.T) {
	backend := testsupport.NewBackend(t, testsupport.WithReplies(testsupport.Reply{
		Status: http.StatusUnprocessableEntity,
		Body: map[string]any{
			"message": "Validation failed",
			"errors": map[string]any{
				"store_name": []string{"Store name is taken"},
				"tax":        "Tax must be numeric",
			},
		},
	}))
	cl, err := client.New(backend.URL())
	require.NoError(t, err)

	_, err = cl.Upsert(testsupport.Context(), "/setting/upsert", settingPayload(t))
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Validation failed", apiErr.Message)
	want := map[string][]string{
		"store_name": {"Store name is taken"},
		"tax":        {"Tax must be numeric"},
	}
	if diff := cmp.Diff(want, apiErr.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	require.False(t, apiErr.Temporary())
}

func TestTransportFailure(t *testing.T) {
	cl, err := client.New("http://127.0.0.1:1")
	require.NoError(t, err)

	_, err = cl.List(testsupport.Context(), "/category/all")
	require.True(t, errors.Is(err, client.ErrTransport), "got %v", err)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := client.New("  ")
	require.Error(t, err)
}
