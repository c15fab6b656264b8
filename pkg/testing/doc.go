// Package testing runs a pretender proxy inside Go tests.
//
// Rules are declared with a fluent builder, written to a temporary rule
// file and served by a real engine.Server listening on a random local port.
// Code under test reaches the proxy through the returned http.Client, or by
// pointing its own transport at Addr.
//
// # Basic Usage
//
//	func TestUsers(t *testing.T) {
//	    p := pretendertesting.New(t)
//
//	    p.Mock("GET", `^http://api\.test/users/\d+$`).
//	        WithStatus(200).
//	        WithBody(map[string]any{"id": "{{faker.uuid4}}"}).
//	        Reply()
//
//	    p.Start()
//
//	    resp, err := p.Client().Get("http://api.test/users/7")
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer resp.Body.Close()
//
//	    p.AssertMocked(t, 1)
//	}
//
// # Header Constraints
//
// WithHeader adds a regular expression the named request header must
// contain. A request that matches URL and method but fails a constraint is
// answered with 401 and counted as rejected:
//
//	p.Mock("POST", `^http://api\.test/items$`).
//	    WithHeader("Authorization", `^Bearer .+`).
//	    WithStatus(201).
//	    WithDelay(100 * time.Millisecond).
//	    Reply()
//
// # Changing Rules
//
// Rules added after Start are written to the rule file and the proxy
// reloads it before Reply returns. Reset drops every rule.
//
// The proxy is stopped by t.Cleanup; calling Stop earlier is allowed.
package testing
