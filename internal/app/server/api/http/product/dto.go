package product

import "vgsync/internal/domain/catalog"

type listInput struct {
	Category string `query:"category" doc:"Filter by category"`
	SellerID string `query:"seller_id" doc:"Filter by seller"`
	Search   string `query:"search" doc:"Substring search over title and description"`
	MinPrice int64  `query:"min_price" doc:"Minimum price in XAF"`
	MaxPrice int64  `query:"max_price" doc:"Maximum price in XAF"`
}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Products []catalog.Product `json:"products"`
}

type favoritesInput struct{}

type favoritesOutput struct {
	Body favoritesResponse
}

type favoritesResponse struct {
	Favorites []catalog.Product `json:"favorites"`
}
