// Package lineage defines the view dependency model shared by the catalog
// reader and the graph writer.
//
// A DependencyEdge is one row of the warehouse dependency catalog: a source
// object (table or view) that a target view is built from. Objects are
// identified by their type, schema and name; the schema-qualified name
// ("schema.name") is carried as a derived property.
//
// # Basic Usage
//
//	edge := lineage.DependencyEdge{
//	    SourceType:   lineage.ObjectView,
//	    SourceSchema: "sales",
//	    SourceName:   "v_orders",
//	    TargetType:   lineage.ObjectView,
//	    TargetSchema: "reporting",
//	    TargetName:   "v_summary",
//	}
//	if err := edge.Validate(); err != nil {
//	    return err
//	}
//	fmt.Println(edge) // sales.v_orders->reporting.v_summary
package lineage
