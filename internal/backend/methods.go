package backend

// Listing methods understood by every Lister implementation.
const (
	MethodListRoles           = "ListRoles"
	MethodListUsers           = "ListUsers"
	MethodListGroups          = "ListGroups"
	MethodGetDatabases        = "GetDatabases"
	MethodGetTables           = "GetTables"
	MethodListResources       = "ListResources"
	MethodListLFTags          = "ListLFTags"
	MethodListDataCellsFilter = "ListDataCellsFilter"
)
