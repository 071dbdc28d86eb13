package model

import "strconv"

// enumNames maps member names to their stored integer values. The same map
// drives JSON-free name lookup, validation and query parsing.
type enumNames map[string]int64

func (e enumNames) name(v int64) string {
	for n, x := range e {
		if x == v {
			return n
		}
	}
	return strconv.FormatInt(v, 10)
}

func (e enumNames) valid(v int64) bool {
	for _, x := range e {
		if x == v {
			return true
		}
	}
	return false
}

// ProductStatus is the lifecycle state of a product. Zero means unset.
type ProductStatus int

const (
	ProductActive       ProductStatus = 1
	ProductInactive     ProductStatus = 2
	ProductDiscontinued ProductStatus = 3
)

var ProductStatusNames = enumNames{"Active": 1, "Inactive": 2, "Discontinued": 3}

func (s ProductStatus) String() string { return ProductStatusNames.name(int64(s)) }
func (s ProductStatus) IsValid() bool  { return ProductStatusNames.valid(int64(s)) }

// StakeholderType distinguishes the parties the pharmacy trades with.
type StakeholderType int

const (
	StakeholderSupplier     StakeholderType = 1
	StakeholderCustomer     StakeholderType = 2
	StakeholderManufacturer StakeholderType = 3
)

var StakeholderTypeNames = enumNames{"Supplier": 1, "Customer": 2, "Manufacturer": 3}

func (t StakeholderType) String() string { return StakeholderTypeNames.name(int64(t)) }
func (t StakeholderType) IsValid() bool  { return StakeholderTypeNames.valid(int64(t)) }

// TransactionType is the reason a stock balance changed.
type TransactionType int

const (
	TransactionPurchase   TransactionType = 1
	TransactionSale       TransactionType = 2
	TransactionAdjustment TransactionType = 3
	TransactionReturn     TransactionType = 4
	TransactionExpired    TransactionType = 5
)

var TransactionTypeNames = enumNames{"Purchase": 1, "Sale": 2, "Adjustment": 3, "Return": 4, "Expired": 5}

func (t TransactionType) String() string { return TransactionTypeNames.name(int64(t)) }
func (t TransactionType) IsValid() bool  { return TransactionTypeNames.valid(int64(t)) }

// PaymentMethod is how a sales invoice was settled.
type PaymentMethod int

const (
	PaymentCash      PaymentMethod = 1
	PaymentCard      PaymentMethod = 2
	PaymentInsurance PaymentMethod = 3
	PaymentCredit    PaymentMethod = 4
)

var PaymentMethodNames = enumNames{"Cash": 1, "Card": 2, "Insurance": 3, "Credit": 4}

func (m PaymentMethod) String() string { return PaymentMethodNames.name(int64(m)) }
func (m PaymentMethod) IsValid() bool  { return PaymentMethodNames.valid(int64(m)) }
