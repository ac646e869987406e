package enums

// ProductType mirrors the catalog's product kinds.
type ProductType string

const (
	ProductTypeSimple    ProductType = "simple"
	ProductTypeVariable  ProductType = "variable"
	ProductTypeVariation ProductType = "variation"
	ProductTypeGrouped   ProductType = "grouped"
	ProductTypeExternal  ProductType = "external"
)

// HasVariations reports whether the type participates in a variation family.
func (p ProductType) HasVariations() bool {
	return p == ProductTypeVariable || p == ProductTypeVariation
}

// StockStatus mirrors the catalog's stock states.
type StockStatus string

const (
	StockStatusInStock     StockStatus = "instock"
	StockStatusOutOfStock  StockStatus = "outofstock"
	StockStatusOnBackorder StockStatus = "onbackorder"
)

// InStock reports whether the product can ship now.
func (s StockStatus) InStock() bool {
	return s == StockStatusInStock
}
