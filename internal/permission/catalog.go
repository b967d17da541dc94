// Package permission holds the static catalog of permission codes.
// The catalog is fixed at build time; the database copy is seeded once
// at startup and never mutated at runtime.
package permission

// Definition is one catalog entry. Code is always "module.action".
type Definition struct {
	Code   string
	Name   string
	Module string
	Action string
}

var catalog = []Definition{
	// Invoices
	{Code: "invoice.view", Name: "View Invoices", Module: "invoice", Action: "view"},
	{Code: "invoice.create", Name: "Create Invoices", Module: "invoice", Action: "create"},
	{Code: "invoice.edit", Name: "Edit Invoices", Module: "invoice", Action: "edit"},
	{Code: "invoice.delete", Name: "Delete Invoices", Module: "invoice", Action: "delete"},
	{Code: "invoice.cancel", Name: "Cancel Invoices", Module: "invoice", Action: "cancel"},
	{Code: "invoice.email", Name: "Email Invoices", Module: "invoice", Action: "email"},

	// Products
	{Code: "product.view", Name: "View Products", Module: "product", Action: "view"},
	{Code: "product.create", Name: "Create Products", Module: "product", Action: "create"},
	{Code: "product.edit", Name: "Edit Products", Module: "product", Action: "edit"},
	{Code: "product.delete", Name: "Delete Products", Module: "product", Action: "delete"},
	{Code: "product.manage_stock", Name: "Manage Product Stock", Module: "product", Action: "manage_stock"},

	// Customers
	{Code: "customer.view", Name: "View Customers", Module: "customer", Action: "view"},
	{Code: "customer.create", Name: "Create Customers", Module: "customer", Action: "create"},
	{Code: "customer.edit", Name: "Edit Customers", Module: "customer", Action: "edit"},
	{Code: "customer.delete", Name: "Delete Customers", Module: "customer", Action: "delete"},

	// Reports
	{Code: "report.view", Name: "View Reports", Module: "report", Action: "view"},
	{Code: "report.export", Name: "Export Reports", Module: "report", Action: "export"},
	{Code: "report.advanced", Name: "Advanced Reports", Module: "report", Action: "advanced"},

	// User management
	{Code: "user.view", Name: "View Users", Module: "user", Action: "view"},
	{Code: "user.create", Name: "Create Users", Module: "user", Action: "create"},
	{Code: "user.edit", Name: "Edit Users", Module: "user", Action: "edit"},
	{Code: "user.delete", Name: "Delete Users", Module: "user", Action: "delete"},
	{Code: "user.assign_roles", Name: "Assign User Roles", Module: "user", Action: "assign_roles"},

	// Role management
	{Code: "role.view", Name: "View Roles", Module: "role", Action: "view"},
	{Code: "role.create", Name: "Create Roles", Module: "role", Action: "create"},
	{Code: "role.edit", Name: "Edit Roles", Module: "role", Action: "edit"},
	{Code: "role.delete", Name: "Delete Roles", Module: "role", Action: "delete"},

	// Branch management
	{Code: "branch.view", Name: "View Branches", Module: "branch", Action: "view"},
	{Code: "branch.create", Name: "Create Branches", Module: "branch", Action: "create"},
	{Code: "branch.edit", Name: "Edit Branches", Module: "branch", Action: "edit"},
	{Code: "branch.delete", Name: "Delete Branches", Module: "branch", Action: "delete"},

	// Distributor management
	{Code: "distributor.manage", Name: "Manage Distributor", Module: "distributor", Action: "manage"},
	{Code: "distributor.settings", Name: "Distributor Settings", Module: "distributor", Action: "settings"},

	// Settings
	{Code: "settings.view", Name: "View Settings", Module: "settings", Action: "view"},
	{Code: "settings.edit", Name: "Edit Settings", Module: "settings", Action: "edit"},

	// Billing / POS
	{Code: "pos.access", Name: "Access POS Terminal", Module: "pos", Action: "access"},
	{Code: "pos.discount", Name: "Apply Discounts", Module: "pos", Action: "discount"},
	{Code: "pos.refund", Name: "Process Refunds", Module: "pos", Action: "refund"},
}

var byCode map[string]Definition

func init() {
	byCode = make(map[string]Definition, len(catalog))
	for _, d := range catalog {
		byCode[d.Code] = d
	}
}

// All returns the full catalog in declaration order.
func All() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Exists reports whether the code is a known permission.
func Exists(code string) bool {
	_, ok := byCode[code]
	return ok
}

// Lookup returns the definition for a code.
func Lookup(code string) (Definition, bool) {
	d, ok := byCode[code]
	return d, ok
}
