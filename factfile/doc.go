// Package factfile loads di facts from a declarative YAML (or JSON) document.
//
// A document names types, providers and event handlers. Callable parts are
// referenced by symbol name and bound to Go functions with Bind:
//
//	doc, err := factfile.Load("app.facts.yaml")
//	if err != nil { ... }
//	facts, err := factfile.Bind(doc, factfile.Symbols{
//	  Providers: map[string]di.ProviderFunc{"newClock": newClock},
//	})
//	if err != nil { ... }
//	c, err := di.Build(facts)
//
// Stubs binds every symbol to a placeholder so a document can be planned and
// built before the real code exists.
package factfile
