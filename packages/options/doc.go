// Package options models request options as a tree whose leaves are either
// literals or resolvers evaluated lazily at request time.
//
// Trees are merged with Merge (recursive on nested trees, later value wins
// everywhere else) and turned into a concrete Config with Build. Resolvers
// receive a View over the root of the tree being resolved, not just their
// parent object.
package options
