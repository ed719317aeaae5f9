package tireco

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"thermite-middleware/lib/tire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"inventory":[
			{"brand":"Tireco","model":"Milestar MS932","size":"225/45R17","price":"74.10","stock":12},
			{"brand":"Tireco","model":"Patagonia","size":"225/45R17","price":81,"qty":4}
		]}`))
	}))
	defer server.Close()

	client, err := NewClient(Options{BaseUrl: server.URL, ApiKey: "key"})
	require.NoError(t, err)

	tires, err := client.Fetch(context.Background(), "225/45R17")
	require.NoError(t, err)
	require.Equal(t, []tire.Tire{
		{Brand: "Tireco", Model: "Milestar MS932", Size: "225/45R17", Price: 74.10, Stock: 12},
		// qty is not a stock alias for tireco
		{Brand: "Tireco", Model: "Patagonia", Size: "225/45R17", Price: 81, Stock: 0},
	}, tires)
}

func TestDefaultBaseUrl(t *testing.T) {
	client, err := NewClient(Options{ApiKey: "key"})
	require.NoError(t, err)
	require.Equal(t, "tireco", client.Name())
}
