// Package wire contains the serializable tree exchanged with remote callers.
//
// A [Member] is one node of the tree. It carries a type id and exactly one
// kind of content: an inline JSON value, named child fields and properties,
// or a [Reference] standing in for a live object that is not inlined.
//
// Nodes distinguish "no value supplied" from an explicit null:
//
//	{"name": "hp", "typeName": "int"}                 absent
//	{"name": "hp", "typeName": "int", "value": null}  null
//	{"name": "hp", "typeName": "int", "value": 12}    value
//
// and, for children, a nil list from an empty one: "fields": null is not
// "fields": [].
//
// Arrays and maps use fields as well. Array elements are named "[0]", "[1]",
// and so on; map entries are named by their key.
package wire
