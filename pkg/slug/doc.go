// Package slug derives URL-safe slug candidates from post titles.
//
// The generator is pure and deterministic (aside from the random fallback
// for empty results): it lowercases, transliterates Latin diacritics,
// collapses whitespace and underscores into hyphens, strips everything
// outside [a-z0-9-], and truncates to 50 characters at a word boundary
// where possible.
//
//	slug.Make("Hello, World!!") // "hello-world"
//	slug.Make("Café & Bar")     // "cafe-bar"
//	slug.Make("")               // "post-k3x9f2" (random tail)
//
// Output is only a candidate. Uniqueness within an owner's namespace is the
// allocator's job; see the permalink package.
package slug
