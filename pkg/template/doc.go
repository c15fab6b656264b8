// Package template expands template tokens embedded in mock response bodies.
//
// A token has the form {{namespace.method}} or {{namespace.method:params}}
// and may appear anywhere inside a string leaf of a response body. Each
// occurrence is replaced in place by the generator's result; surrounding
// text is kept.
//
// # Namespaces
//
//   - faker.*    - identity and fake data, e.g. {{faker.name}}, {{faker.email}},
//     {{faker.random_number:4}}. Seeded once per engine so a fixed call
//     sequence reproduces the same values.
//   - random.*   - numbers, e.g. {{random.randint:1,6}}, {{random.uniform}},
//     {{random.choice:"a","b"}}. Not reproducible.
//   - datetime.* - wall clock, e.g. {{datetime.now}}, {{datetime.strftime:"%Y-%m-%d"}}.
//     The date.* and time.* prefixes resolve against the same registry.
//
// # Parameters
//
// Parameters are positional. Double-quoted strings, bare numbers and
// true/false literals are collected separately and passed in that order:
// all strings first, then all numbers, then all booleans, whatever their
// position in the token. {{random.sample:3,"abcde"}} therefore calls
// sample("abcde", 3).
//
// Without parameters each method runs with its own defaults, for example
// {{faker.random_number}} yields at most eight digits and {{random.randint}}
// a value in [1, 100].
//
// # Failures
//
// Expansion never fails. A known namespace with an unknown method, or a
// generator rejecting its arguments, renders as {{ERROR: name - reason}};
// an unknown namespace renders as {{UNKNOWN: name}}.
package template
