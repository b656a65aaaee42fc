package model

// LinkRecord associates a bank and a product with a unique customer-facing
// referral URL. Owned by the backend; read-only on this side.
type LinkRecord struct {
	ID                 int64  `json:"id"`
	Bank               int64  `json:"bank"`
	BankName           string `json:"bank_name"`
	Product            int64  `json:"product"`
	ProductName        string `json:"product_name"`
	Name               string `json:"name"`
	UserID             string `json:"user_id"`
	Password           string `json:"password"`
	UTMLink            string `json:"utm_link"`
	Description        string `json:"description"`
	UniqueCustomerLink string `json:"unique_customer_link"`
	CreatedAt          string `json:"created_at"`
}

// Bank and Product are referenced as id+name pairs only; the backend list
// endpoints and the matrix derivation both use this shape.
type Bank struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CreateLinkParams struct {
	Bank        int64  `json:"bank"`
	Product     int64  `json:"product"`
	Name        string `json:"name"`
	UserID      string `json:"user_id"`
	Password    string `json:"password"`
	UTMLink     string `json:"utm_link"`
	Description string `json:"description"`
}

type CreateBankParams struct {
	Name string `json:"name"`
}

type CreateProductParams struct {
	Name string `json:"name"`
}
