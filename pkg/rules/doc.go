// Package rules loads interception rules from a YAML file and decides,
// per request, whether a request is mocked, rejected or forwarded.
//
// A rule file looks like:
//
//	mocks:
//	  - url: ^http://api\.example\.com/users/\d+$
//	    method: GET
//	    headers:
//	      Authorization: ^Bearer .+
//	    response:
//	      code: 200
//	      delay: 250
//	      msg:
//	        id: "{{faker.uuid4}}"
//	        name: "{{faker.name}}"
//
// URL patterns must match the whole request URL. Header patterns only need
// to match somewhere in the header value. Both use backtracking regular
// expressions, so lookarounds and backreferences work.
//
// The Store keeps the last successfully parsed file as an immutable RuleSet
// and swaps it atomically when the file changes. Readers never observe a
// partially loaded set.
package rules
