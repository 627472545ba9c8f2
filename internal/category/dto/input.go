package dto

type CreateCategoryInput struct {
	Name        string
	Description string
}

type UpdateCategoryInput struct {
	ID          int64
	Name        string
	Description string
}
