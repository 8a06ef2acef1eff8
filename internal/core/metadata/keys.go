package metadata

// Canonical metadata keys of the result schema. The names follow the Tika
// conventions the downstream consumers of this service already rely on;
// some keys are only present for certain document types.
const (
	ContentType            = "Content-Type"
	OcrApplied             = "X-OCR-Applied"
	ParsedBy               = "X-TIKA:Parsed-By"
	PageCount              = "Page-Count"
	ImageProcessingEnabled = "Image-Processing-Enabled"

	// Office document tags
	Comments        = "meta:comments"
	Author          = "meta:last-author"
	Category        = "Category"
	Creator         = "dc:creator"
	Keywords        = "Keywords"
	WordCount       = "meta:word-count"
	CharacterCount  = "meta:character-count"
	LastSavedDate   = "Last-Save-Date"
	ModifiedDate    = "dcterms:modified"
	ApplicationName = "extended-properties:Application"
	Company         = "extended-properties:Company"
	CreationDate    = "dcterms:created"
	Description     = "dc:description"
	Identifier      = "dc:identifier"
	Subject         = "dc:subject"

	// HTML tags
	LastModified    = "Last-Modified"
	ContentEncoding = "Content-Encoding"

	MimeTypeTag = "mime-type"
)
