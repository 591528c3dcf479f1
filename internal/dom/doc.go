// Package dom defines the host-environment boundary of the popup engine.
//
// The engine never talks to a browser directly. It consumes a Window (scroll
// geometry plus window-level listeners), a Document (selector queries, focus,
// document-level listeners) and Elements (attributes, classes, focus,
// element-level listeners). Any embedding that can forward DOM events can
// implement these interfaces.
//
// Page and Node are an in-process implementation with just enough DOM
// behavior for the engine: attribute and class storage, a small CSS selector
// subset, focus tracking, event bubbling (target, ancestors, document,
// window) and listener bookkeeping. The scenario harness, the CLI simulator
// and the tests all run against it.
//
// Supported selectors: tag, #id, .class, [attr], [attr=value] (optionally
// quoted), compounds of those, descendant combinators and comma lists.
package dom
