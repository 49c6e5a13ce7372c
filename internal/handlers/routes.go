package handlers

import "github.com/labstack/echo/v4"

// API bundles the authenticated handler sets.
type API struct {
	Users       *UserHandlers
	Structures  *StructureHandlers
	Properties  *PropertyHandlers
	Tenants     *TenantHandlers
	Documents   *DocumentHandlers
	Inspections *InspectionHandlers
	Dashboard   *DashboardHandlers
}

// RegisterRoutes mounts the API on a group that already carries auth middleware.
func (a *API) RegisterRoutes(protected *echo.Group) {
	protected.GET("/me", a.Users.Me)
	protected.GET("/dashboard", a.Dashboard.GetDashboard)

	protected.GET("/structures", a.Structures.ListStructures)
	protected.POST("/structures", a.Structures.CreateStructure)
	protected.GET("/structures/:id", a.Structures.GetStructure)
	protected.PATCH("/structures/:id", a.Structures.UpdateStructure)
	protected.DELETE("/structures/:id", a.Structures.DeleteStructure)

	protected.GET("/structures/:id/memberships", a.Structures.ListMembers)
	protected.POST("/structures/:id/memberships", a.Structures.AddMember)
	protected.PATCH("/structures/:id/memberships/:userId", a.Structures.ChangeMemberRole)
	protected.DELETE("/structures/:id/memberships/:userId", a.Structures.RemoveMember)

	protected.GET("/properties", a.Properties.ListProperties)
	protected.POST("/properties", a.Properties.CreateProperty)
	protected.GET("/properties/:id", a.Properties.GetProperty)
	protected.PATCH("/properties/:id", a.Properties.UpdateProperty)
	protected.DELETE("/properties/:id", a.Properties.DeleteProperty)
	protected.POST("/properties/:id/tenants", a.Properties.AssignTenant)
	protected.DELETE("/properties/:id/tenants", a.Properties.EndTenancy)

	protected.GET("/tenants", a.Tenants.ListTenants)
	protected.POST("/tenants", a.Tenants.CreateTenant)
	protected.GET("/tenants/:id", a.Tenants.GetTenant)
	protected.PATCH("/tenants/:id", a.Tenants.UpdateTenant)
	protected.DELETE("/tenants/:id", a.Tenants.DeleteTenant)

	protected.GET("/documents", a.Documents.ListDocuments)
	protected.POST("/documents", a.Documents.CreateDocument)
	protected.POST("/documents/upload", a.Documents.UploadDocument)
	protected.GET("/documents/:id", a.Documents.GetDocument)
	protected.GET("/documents/:id/download", a.Documents.DownloadDocument)
	protected.DELETE("/documents/:id", a.Documents.DeleteDocument)

	protected.GET("/inspections", a.Inspections.ListInspections)
	protected.POST("/inspections", a.Inspections.CreateInspection)
	protected.GET("/inspections/:id", a.Inspections.GetInspection)
	protected.PATCH("/inspections/:id", a.Inspections.UpdateInspection)
	protected.DELETE("/inspections/:id", a.Inspections.DeleteInspection)
}

// RegisterPublicRoutes mounts the unauthenticated share-link endpoint.
func (a *API) RegisterPublicRoutes(public *echo.Group) {
	public.GET("/inspections/:token", a.Inspections.GetSharedInspection)
}
