// Package registry provides a generic thread-safe catalog for values
// indexed by key.
//
// The compiler core is handed fully resolved node types; this package
// is the seam where a front end keeps them. A catalog of NodeTypes by
// name is the typical shape:
//
//	types := registry.New[string, *planweave.NodeType]()
//	types.Register("fetch", fetchType)
//	types.Register("transform", transformType)
//
//	t, ok := types.Get("fetch")
//	if !ok {
//	    return fmt.Errorf("unresolved node type %q", "fetch")
//	}
//
// GetOrCreate supports lazy resolution of imported types; the factory
// runs at most once per key even under concurrent access:
//
//	t := types.GetOrCreate("pkg.Widget", func() *planweave.NodeType {
//	    return loadImportedType("pkg.Widget")
//	})
//
// All methods are safe for concurrent use. Registry is read-optimized;
// registration typically happens once at startup.
package registry
