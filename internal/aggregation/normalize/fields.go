package normalize

// ─── Bork 票據 ─────────────────────────────────────────────────────────────────

var (
	TicketKey     = Field{"Key", "TicketKey", "ticketKey", "Id", "id", "ticket_id"}
	TicketDate    = Field{"Date", "date", "ActualDate"}
	TicketOrders  = Field{"Orders", "orders", "OrderList"}
	OrderKey      = Field{"Key", "OrderKey", "orderKey", "Id", "id"}
	OrderLines    = Field{"Lines", "lines", "OrderLines", "Items", "items"}
	LineKey       = Field{"Key", "LineKey", "OrderLineKey", "orderLineKey", "Id", "id"}
	ProductName   = Field{"ProductName", "productName", "product_name", "ArticleName", "Name", "name"}
	GroupName     = Field{"GroupName", "groupName", "group_name", "ProductGroupName", "Category", "category"}
	GroupID       = Field{"GroupId", "GroupID", "groupId", "group_id", "ProductGroupId"}
	Quantity      = Field{"Qty", "qty", "Quantity", "quantity", "Amount"}
	UnitPrice     = Field{"Price", "price", "UnitPrice", "unitPrice", "unit_price"}
	TotalIncVat   = Field{"TotalInc", "TotalIncVat", "totalIncVat", "total_inc_vat", "TotalPrice", "Total", "total"}
	TotalExVat    = Field{"TotalEx", "TotalExVat", "totalExVat", "total_ex_vat"}
	VatRate       = Field{"VatPerc", "VatRate", "vatRate", "vat_rate", "Vat", "vat"}
	WaiterName    = Field{"WaiterName", "waiterName", "waiter_name", "Waiter", "UserName"}
	PaymentMethod = Field{"PaymentMethod", "paymentMethod", "payment_method", "PaymentName"}
	TableNumber   = Field{"TableNumber", "tableNumber", "table_number", "TableNr", "Table", "table"}
)

// ─── Eitje 班表 ────────────────────────────────────────────────────────────────

var (
	ShiftUserID        = Field{"user_id", "userId", "UserId", "user.id", "employee_id"}
	ShiftTeamID        = Field{"team_id", "teamId", "TeamId", "team.id"}
	ShiftTeamName      = Field{"team_name", "teamName", "TeamName", "team.name"}
	ShiftEnvironmentID = Field{"environment_id", "environmentId", "EnvironmentId", "environment.id"}
	ShiftStart         = Field{"start", "start_time", "startTime", "started_at", "start_datetime"}
	ShiftEnd           = Field{"end", "end_time", "endTime", "ended_at", "end_datetime"}
	ShiftBreakMinutes  = Field{"break_minutes", "breakMinutes", "break", "pause"}
	ShiftHours         = Field{"hours", "total_hours", "hours_worked", "duration_hours"}
	ShiftWageCost      = Field{"wage_cost", "wageCost", "cost", "total_cost"}
	ShiftHourlyRate    = Field{"hourly_rate", "hourlyRate", "wage", "rate"}
	ShiftDate          = Field{"date", "shift_date", "Date"}
)

// ─── 身分 ──────────────────────────────────────────────────────────────────────

var (
	UserID         = Field{"id", "Id", "user_id", "userId"}
	FirstName      = Field{"first_name", "firstName", "FirstName"}
	LastName       = Field{"last_name", "lastName", "LastName"}
	DisplayName    = Field{"name", "Name", "full_name", "fullName"}
	SystemMappings = Field{"systemMappings", "system_mappings"}
	MappingSystem  = Field{"system", "System"}
	MappingID      = Field{"externalId", "external_id", "ExternalId"}
	EitjeUserID    = Field{"eitjeUserId", "eitje_user_id", "eitjeId"}
	UnifiedUserID  = Field{"unifiedUserId", "unified_user_id"}
	CreatedAt      = Field{"createdAt", "created_at"}
)
