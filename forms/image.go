package forms

import (
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/yatube/yatube/utils"
)

// MaxImageBytes caps the size of an uploaded post image.
const MaxImageBytes = 10 << 20

var errNotImage = errors.New("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")

// ValidateImage sniffs the upload content and accepts only the stored image types.
func ValidateImage(file *multipart.FileHeader) error {
	if file.Size == 0 {
		return errors.New("The submitted file is empty.")
	}
	if file.Size > MaxImageBytes {
		return fmt.Errorf("Image must be at most %d MB.", MaxImageBytes>>20)
	}
	src, err := file.Open()
	if err != nil {
		return errNotImage
	}
	defer src.Close()

	if _, ok := utils.DetectImage(src); !ok {
		return errNotImage
	}
	return nil
}
