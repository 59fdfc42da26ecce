// Package adt defines the core data model shared by all object clients:
// object references and their ADT URIs, lock handles and the explicit lock
// state, session modes, operation results and the error taxonomy.
package adt

// Kind identifies an ADT object type using the server's TYPE/SUBTYPE notation
// (the value sent in adtcore:type attributes).
type Kind string

const (
	KindClass              Kind = "CLAS/OC"
	KindInterface          Kind = "INTF/OI"
	KindProgram            Kind = "PROG/P"
	KindInclude            Kind = "PROG/I"
	KindFunctionGroup      Kind = "FUGR/F"
	KindFunctionModule     Kind = "FUGR/FF"
	KindTable              Kind = "TABL/DT"
	KindStructure          Kind = "TABL/DS"
	KindView               Kind = "DDLS/DF"
	KindAccessControl      Kind = "DCLS/DL"
	KindMetadataExtension  Kind = "DDLX/EX"
	KindTableType          Kind = "TTYP/DA"
	KindDomain             Kind = "DOMA/DD"
	KindDataElement        Kind = "DTEL/DE"
	KindPackage            Kind = "DEVC/K"
	KindMessageClass       Kind = "MSAG/N"
	KindTransformation     Kind = "XSLT/VT"
	KindBehaviorDefinition Kind = "BDEF/BDO"
	KindServiceDefinition  Kind = "SRVD/SRV"
)

// kindInfo captures everything needed to build URIs and payloads for one
// object type.
type kindInfo struct {
	// Base collection URI, without the trailing object name.
	baseURI string
	// True for source-based objects whose text lives under /source/main.
	hasSource bool
	// True when the object lives inside a container (function modules inside
	// their function group).
	needsContainer bool
	// Root element name of the create payload, e.g. "class:abapClass".
	createElement string
	// xmlns attribute name matching createElement's prefix.
	createNamespace string
}

var kinds = map[Kind]kindInfo{
	KindClass:              {baseURI: "/sap/bc/adt/oo/classes", hasSource: true, createElement: "class:abapClass", createNamespace: "xmlns:class=\"http://www.sap.com/adt/oo/classes\""},
	KindInterface:          {baseURI: "/sap/bc/adt/oo/interfaces", hasSource: true, createElement: "intf:abapInterface", createNamespace: "xmlns:intf=\"http://www.sap.com/adt/oo/interfaces\""},
	KindProgram:            {baseURI: "/sap/bc/adt/programs/programs", hasSource: true, createElement: "program:abapProgram", createNamespace: "xmlns:program=\"http://www.sap.com/adt/programs/programs\""},
	KindInclude:            {baseURI: "/sap/bc/adt/programs/includes", hasSource: true, createElement: "include:abapInclude", createNamespace: "xmlns:include=\"http://www.sap.com/adt/programs/includes\""},
	KindFunctionGroup:      {baseURI: "/sap/bc/adt/functions/groups", createElement: "group:abapFunctionGroup", createNamespace: "xmlns:group=\"http://www.sap.com/adt/functions/groups\""},
	KindFunctionModule:     {baseURI: "/sap/bc/adt/functions/groups", hasSource: true, needsContainer: true, createElement: "fmodule:abapFunctionModule", createNamespace: "xmlns:fmodule=\"http://www.sap.com/adt/functions/fmodules\""},
	KindTable:              {baseURI: "/sap/bc/adt/ddic/tables", hasSource: true, createElement: "blue:blueSource", createNamespace: "xmlns:blue=\"http://www.sap.com/wbobj/blue\""},
	KindStructure:          {baseURI: "/sap/bc/adt/ddic/structures", hasSource: true, createElement: "blue:blueSource", createNamespace: "xmlns:blue=\"http://www.sap.com/wbobj/blue\""},
	KindView:               {baseURI: "/sap/bc/adt/ddic/ddl/sources", hasSource: true, createElement: "ddl:ddlSource", createNamespace: "xmlns:ddl=\"http://www.sap.com/adt/ddic/ddlsources\""},
	KindAccessControl:      {baseURI: "/sap/bc/adt/acm/dcl/sources", hasSource: true, createElement: "dcl:dclSource", createNamespace: "xmlns:dcl=\"http://www.sap.com/adt/acm/dclsources\""},
	KindMetadataExtension:  {baseURI: "/sap/bc/adt/ddic/ddlx/sources", hasSource: true, createElement: "ddlx:ddlxSource", createNamespace: "xmlns:ddlx=\"http://www.sap.com/adt/ddic/ddlxsources\""},
	KindTableType:          {baseURI: "/sap/bc/adt/ddic/tabletypes", createElement: "blue:blueSource", createNamespace: "xmlns:blue=\"http://www.sap.com/wbobj/blue\""},
	KindDomain:             {baseURI: "/sap/bc/adt/ddic/domains", createElement: "doma:wbDomain", createNamespace: "xmlns:doma=\"http://www.sap.com/wbobj/dictionary/doma\""},
	KindDataElement:        {baseURI: "/sap/bc/adt/ddic/dataelements", createElement: "dtel:wbDataElement", createNamespace: "xmlns:dtel=\"http://www.sap.com/wbobj/dictionary/dtel\""},
	KindPackage:            {baseURI: "/sap/bc/adt/packages", createElement: "pak:package", createNamespace: "xmlns:pak=\"http://www.sap.com/adt/packages\""},
	KindMessageClass:       {baseURI: "/sap/bc/adt/messageclass", createElement: "mc:messageClass", createNamespace: "xmlns:mc=\"http://www.sap.com/adt/messageclass\""},
	KindTransformation:     {baseURI: "/sap/bc/adt/xslt/sources", hasSource: true, createElement: "xslt:xsltSource", createNamespace: "xmlns:xslt=\"http://www.sap.com/adt/xslt\""},
	KindBehaviorDefinition: {baseURI: "/sap/bc/adt/bo/behaviordefinitions", hasSource: true, createElement: "bdef:behaviorDefinition", createNamespace: "xmlns:bdef=\"http://www.sap.com/adt/bo/behaviordefinitions\""},
	KindServiceDefinition:  {baseURI: "/sap/bc/adt/ddic/srvd/sources", hasSource: true, createElement: "srvd:srvdSource", createNamespace: "xmlns:srvd=\"http://www.sap.com/adt/ddic/srvdsources\""},
}

// Known reports whether k is a supported object kind.
func (k Kind) Known() bool {
	_, ok := kinds[k]
	return ok
}

// HasSource reports whether objects of this kind carry editable source text
// under a /source/main sub-resource.
func (k Kind) HasSource() bool {
	return kinds[k].hasSource
}

// NeedsContainer reports whether objects of this kind live inside a container
// object (currently only function modules, inside their function group).
func (k Kind) NeedsContainer() bool {
	return kinds[k].needsContainer
}

// CreateElement returns the root element name of the create payload for this
// kind, e.g. "class:abapClass".
func (k Kind) CreateElement() string {
	return kinds[k].createElement
}

// CreateNamespace returns the xmlns declaration matching CreateElement's
// prefix.
func (k Kind) CreateNamespace() string {
	return kinds[k].createNamespace
}
