package domain

type RetrievedText struct {
	Content    string `json:"content"`
	Page       int    `json:"page"`
	FilePath   string `json:"file_path"`
	Filename   string `json:"filename"`
	Breadcrumb string `json:"breadcrumb"`
}

type RetrievedImage struct {
	Caption    string `json:"caption"`
	ImagePath  string `json:"image_path"`
	FilePath   string `json:"file_path"`
	Filename   string `json:"filename"`
	Page       int    `json:"page"`
	Breadcrumb string `json:"breadcrumb"`
}

type RetrievalResult struct {
	Texts  []RetrievedText  `json:"texts"`
	Images []RetrievedImage `json:"images"`
}
