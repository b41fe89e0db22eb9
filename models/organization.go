package models

import "time"

type Merchant struct {
	ID         string `json:"id" bson:"id"`
	Name       string `json:"name" bson:"name"`
	BusinessID string `json:"business_id,omitempty" bson:"business_id,omitempty"`
	City       string `json:"city,omitempty" bson:"city,omitempty"`
	Email      string `json:"email,omitempty" bson:"email,omitempty"`
	PaytrailID string `json:"paytrail_merchant_id,omitempty" bson:"paytrail_merchant_id,omitempty"`
}

type Account struct {
	ID            string `json:"id" bson:"id"`
	Name          string `json:"name" bson:"name"`
	CompanyCode   string `json:"company_code,omitempty" bson:"company_code,omitempty"`
	MainLedger    string `json:"main_ledger_account,omitempty" bson:"main_ledger_account,omitempty"`
	InternalOrder string `json:"internal_order,omitempty" bson:"internal_order,omitempty"`
	ProfitCenter  string `json:"profit_center,omitempty" bson:"profit_center,omitempty"`
}

type Organization struct {
	ID              string     `json:"id" bson:"_id"`
	DataSource      string     `json:"data_source" bson:"data_source"`
	Name            string     `json:"name" bson:"name"`
	Classification  string     `json:"classification,omitempty" bson:"classification,omitempty"`
	Parent          string     `json:"parent_organization,omitempty" bson:"parent,omitempty"`
	ReplacedBy      string     `json:"replaced_by,omitempty" bson:"replaced_by,omitempty"`
	DissolutionDate *time.Time `json:"dissolution_date,omitempty" bson:"dissolution_date,omitempty"`

	AdminUsers             []string `json:"admin_users,omitempty" bson:"admin_users,omitempty"`
	RegularUsers           []string `json:"regular_users,omitempty" bson:"regular_users,omitempty"`
	RegistrationAdminUsers []string `json:"registration_admin_users,omitempty" bson:"registration_admin_users,omitempty"`
	FinancialAdminUsers    []string `json:"financial_admin_users,omitempty" bson:"financial_admin_users,omitempty"`

	Merchants []Merchant `json:"-" bson:"merchants,omitempty"`
	Accounts  []Account  `json:"-" bson:"accounts,omitempty"`

	CreatedTime      time.Time `json:"created_time" bson:"created_time"`
	LastModifiedTime time.Time `json:"last_modified_time" bson:"last_modified_time"`
}

// HasAdmin reports whether the user administers this organization directly.
func (o *Organization) HasAdmin(userID string) bool {
	for _, u := range o.AdminUsers {
		if u == userID {
			return true
		}
	}
	return false
}

func (o *Organization) HasRegistrationAdmin(userID string) bool {
	for _, u := range o.RegistrationAdminUsers {
		if u == userID {
			return true
		}
	}
	return o.HasAdmin(userID)
}

func (o *Organization) HasFinancialAdmin(userID string) bool {
	for _, u := range o.FinancialAdminUsers {
		if u == userID {
			return true
		}
	}
	return false
}
