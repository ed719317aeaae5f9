package wtwd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"thermite-middleware/lib/retry"
	"thermite-middleware/lib/tire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/time/rate"
)

const sessionCookie = ".DOTNETNUKE"

const loginPage = `<html><body><form method="post" action="/Login.aspx">
<input type="hidden" name="__VIEWSTATE" value="login-viewstate" />
<input type="hidden" name="__VIEWSTATEGENERATOR" value="C2EE9ABB" />
<input type="hidden" name="__RequestVerificationToken" value="login-token" />
<input type="text" name="dnn$ctr$Login$Login_ICGCustom$textUsername" />
</form></body></html>`

const shopPage = `<html><body><form method="post" action="/Shop.aspx">
<input type="hidden" name="__VIEWSTATE" value="shop-viewstate" />
<input type="hidden" name="__EVENTVALIDATION" value="shop-validation" />
<input name="dnn$ctr3203$TireSearchView$TireSizeARadComboBox" />
</form></body></html>`

const resultsPage = `<html><body>
<table id="dnn_ctr3203_ItemGridView_ctl00" class="rgMasterTable">
<thead><tr><th></th><th>Part #</th><th>Description</th><th>Size</th><th>Mfg</th><th>FET</th><th>Price</th><th>Avail</th></tr></thead>
<tbody>
<tr class="rgRow"><td></td><td>NX15342</td><td>NEXEN N5000 PLUS</td><td>225/45R17</td><td>Nexen</td><td>$0.00</td><td>$89.99</td><td>In Stock: 14</td></tr>
<tr class="rgAltRow"><td></td><td>HK1010</td><td>HANKOOK VENTUS</td><td>2254517</td><td></td><td>$0.00</td><td>$ 1,104.50</td><td>2</td></tr>
<tr class="rgRow"><td></td><td>CALL01</td><td>SPECIAL ORDER</td><td>225/45R17</td><td>Misc</td><td></td><td>Call</td><td>0</td></tr>
</tbody></table></body></html>`

const noResultsPage = `<html><body><div class="search">Search for tires</div></body></html>`

type fakePortal struct {
	t        testing.TB
	username string
	password string

	// html returned by a search with a size query
	searchPage string
	// html returned by the search form post
	formSearchPage string
	// status code of a search with a size query
	searchStatus int
	// body of the login post response, before the session cookie is checked
	loginResponse string

	mu            sync.Mutex
	loginPosts    int
	searches      int
	formSearches  int
	lastLoginForm map[string]string
	lastFormPost  map[string]string
	lastQuery     string
}

func (p *fakePortal) authenticated(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookie)
	return err == nil && cookie.Value == "session-1"
}

func (p *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case r.URL.Path == LoginPath && r.Method == http.MethodGet:
		w.Write([]byte(loginPage))

	case r.URL.Path == LoginPath && r.Method == http.MethodPost:
		p.loginPosts++
		assert.NoError(p.t, r.ParseForm())
		p.lastLoginForm = map[string]string{}
		for k := range r.PostForm {
			p.lastLoginForm[k] = r.PostForm.Get(k)
		}
		if r.PostForm.Get(usernameField) != p.username || r.PostForm.Get(passwordField) != p.password {
			w.Write([]byte(`<html><body>Login failed. Please try again.</body></html>`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "session-1", Path: "/"})
		if p.loginResponse != "" {
			w.Write([]byte(p.loginResponse))
			return
		}
		w.Write([]byte(`<html><body><a href="/Logout.aspx">Logout</a></body></html>`))

	case r.URL.Path == SearchPath && r.Method == http.MethodGet:
		if !p.authenticated(r) {
			w.Write([]byte(noResultsPage))
			return
		}
		if r.URL.Query().Get("Search") == "" {
			w.Write([]byte(shopPage))
			return
		}
		p.searches++
		p.lastQuery = r.URL.RawQuery
		if p.searchStatus != 0 {
			w.WriteHeader(p.searchStatus)
			return
		}
		w.Write([]byte(p.searchPage))

	case r.URL.Path == SearchPath && r.Method == http.MethodPost:
		p.formSearches++
		assert.NoError(p.t, r.ParseForm())
		p.lastFormPost = map[string]string{}
		for k := range r.PostForm {
			p.lastFormPost[k] = r.PostForm.Get(k)
		}
		if !p.authenticated(r) {
			w.Write([]byte(noResultsPage))
			return
		}
		w.Write([]byte(p.formSearchPage))

	default:
		http.NotFound(w, r)
	}
}

func newFakePortal(t testing.TB) (*fakePortal, *httptest.Server) {
	portal := &fakePortal{
		t:              t,
		username:       "dealer01",
		password:       "hunter2",
		searchPage:     resultsPage,
		formSearchPage: noResultsPage,
	}
	server := httptest.NewServer(portal)
	t.Cleanup(server.Close)
	return portal, server
}

func testOptions(server *httptest.Server, username, password string) ClientOptions {
	return ClientOptions{
		BaseUrl:           server.URL,
		Username:          username,
		Password:          password,
		Policy:            retry.Policy{Attempts: 3, Base: time.Millisecond},
		RequestsPerSecond: rate.Inf,
	}
}

func TestLogin(t *testing.T) {
	portal, server := newFakePortal(t)

	client, err := NewClient(context.Background(), testOptions(server, "dealer01", "hunter2"))
	require.NoError(t, err)
	require.NotNil(t, client)

	require.Equal(t, 1, portal.loginPosts)
	require.Equal(t, "login-viewstate", portal.lastLoginForm["__VIEWSTATE"])
	require.Equal(t, "C2EE9ABB", portal.lastLoginForm["__VIEWSTATEGENERATOR"])
	require.Equal(t, "login-token", portal.lastLoginForm["__RequestVerificationToken"])
	// missing tokens are sent empty
	value, ok := portal.lastLoginForm["__EVENTVALIDATION"]
	require.True(t, ok)
	require.Equal(t, "", value)
	require.Equal(t, "Login", portal.lastLoginForm[loginButtonField])
}

func TestLoginFailed(t *testing.T) {
	portal, server := newFakePortal(t)

	client, err := NewClient(context.Background(), testOptions(server, "dealer01", "wrong"))
	require.Nil(t, client)

	var loginErr *LoginError
	require.True(t, errors.As(err, &loginErr))
	require.True(t, IsLoginError(err))
	require.Equal(t, 0, portal.searches)
	require.Equal(t, 0, portal.formSearches)
}

func TestLoginIndicators(t *testing.T) {
	table := []struct {
		response string
		ok       bool
	}{
		{response: `<a>Sign Out</a>`, ok: true},
		{response: `<span>Welcome, DEALER01</span>`, ok: true},
		{response: `<span>Welcome back</span>`, ok: false},
	}

	for _, row := range table {
		portal, server := newFakePortal(t)
		portal.loginResponse = row.response

		_, err := NewClient(context.Background(), testOptions(server, "dealer01", "hunter2"))
		if row.ok {
			require.NoError(t, err, row.response)
		} else {
			require.True(t, IsLoginError(err), row.response)
		}
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	_, server := newFakePortal(t)

	_, err := NewClient(context.Background(), testOptions(server, "", ""))
	require.True(t, IsLoginError(err))
}

func TestLoginUnreachable(t *testing.T) {
	_, server := newFakePortal(t)
	opts := testOptions(server, "dealer01", "hunter2")
	server.Close()

	_, err := NewClient(context.Background(), opts)
	require.True(t, IsLoginError(err))
}

func TestFetch(t *testing.T) {
	portal, server := newFakePortal(t)
	client, err := NewClient(context.Background(), testOptions(server, "dealer01", "hunter2"))
	require.NoError(t, err)

	tires, err := client.Fetch(context.Background(), "225/45R17")
	require.NoError(t, err)
	require.Equal(t, "Search=2254517&TireSizeA=2254517", portal.lastQuery)
	require.Equal(t, 0, portal.formSearches)

	require.Equal(t, []tire.Tire{
		{Brand: "Nexen", Model: "NEXEN N5000 PLUS", Size: "225/45R17", Price: 89.99, Stock: 14},
		{Brand: "HANKOOK", Model: "HANKOOK VENTUS", Size: "225/45R17", Price: 1104.50, Stock: 2},
	}, tires)
}

func TestFetchEmptySize(t *testing.T) {
	portal, server := newFakePortal(t)
	client, err := NewClient(context.Background(), testOptions(server, "dealer01", "hunter2"))
	require.NoError(t, err)

	tires, err := client.Fetch(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, tires)
	require.Equal(t, 0, portal.searches)
}

func TestFetchFormSearch(t *testing.T) {
	portal, server := newFakePortal(t)
	portal.searchPage = noResultsPage
	portal.formSearchPage = resultsPage

	client, err := NewClient(context.Background(), testOptions(server, "dealer01", "hunter2"))
	require.NoError(t, err)

	tires, err := client.Fetch(context.Background(), "225/45R17")
	require.NoError(t, err)
	require.Len(t, tires, 2)

	require.Equal(t, 1, portal.formSearches)
	require.Equal(t, "2254517", portal.lastFormPost[sizeComboBoxField])
	require.Equal(t, "2254517", portal.lastFormPost["Search"])
	require.Equal(t, "shop-viewstate", portal.lastFormPost["__VIEWSTATE"])
	require.Equal(t, "shop-validation", portal.lastFormPost["__EVENTVALIDATION"])
}

func TestFetchNoTable(t *testing.T) {
	portal, server := newFakePortal(t)
	portal.searchPage = noResultsPage
	portal.formSearchPage = noResultsPage

	client, err := NewClient(context.Background(), testOptions(server, "dealer01", "hunter2"))
	require.NoError(t, err)

	tires, err := client.Fetch(context.Background(), "225/45R17")
	require.NoError(t, err)
	require.Empty(t, tires)
	require.Equal(t, 1, portal.searches)
	require.Equal(t, 1, portal.formSearches)
}

func TestFetchRetries(t *testing.T) {
	portal, server := newFakePortal(t)
	portal.searchStatus = http.StatusInternalServerError

	client, err := NewClient(context.Background(), testOptions(server, "dealer01", "hunter2"))
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), "225/45R17")
	var exhausted *retry.ExhaustedRetriesError
	require.True(t, errors.As(err, &exhausted), fmt.Sprint(err))
	require.Equal(t, 3, portal.searches)
}

// spansSince indexes the spans that ended after the first `from` by name,
// the last span of a name wins.
func spansSince(recorder *tracetest.SpanRecorder, from int) map[string]sdktrace.ReadOnlySpan {
	out := map[string]sdktrace.ReadOnlySpan{}
	for _, span := range recorder.Ended()[from:] {
		out[span.Name()] = span
	}
	return out
}

func TestSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { provider.Shutdown(context.Background()) })

	portal, server := newFakePortal(t)
	portal.searchPage = noResultsPage
	portal.formSearchPage = resultsPage

	_, err := NewClient(context.Background(), testOptions(server, "dealer01", "wrong"))
	require.Error(t, err)
	spans := spansSince(recorder, 0)
	require.Contains(t, spans, "client:login")
	require.Equal(t, codes.Error, spans["client:login"].Status().Code)

	mark := len(recorder.Ended())
	client, err := NewClient(context.Background(), testOptions(server, "dealer01", "hunter2"))
	require.NoError(t, err)
	spans = spansSince(recorder, mark)
	require.Contains(t, spans, "client:login")
	require.NotEqual(t, codes.Error, spans["client:login"].Status().Code)

	mark = len(recorder.Ended())
	_, err = client.Fetch(context.Background(), "225/45R17")
	require.NoError(t, err)
	spans = spansSince(recorder, mark)
	require.Contains(t, spans, "client:search")
	require.Contains(t, spans, "client:formSearch")
	require.NotEqual(t, codes.Error, spans["client:search"].Status().Code)

	portal.mu.Lock()
	portal.searchStatus = http.StatusInternalServerError
	portal.mu.Unlock()
	mark = len(recorder.Ended())
	_, err = client.Fetch(context.Background(), "225/45R17")
	require.Error(t, err)
	spans = spansSince(recorder, mark)
	require.Equal(t, codes.Error, spans["client:search"].Status().Code)
}
