package utils

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// EnsureUploadDir creates the local proof upload directory if it doesn't exist
func EnsureUploadDir() error {
	return os.MkdirAll(filepath.Join("uploads", "proofs"), os.ModePerm)
}

// SaveFile saves the uploaded file to the given destination path
func SaveFile(fileHeader *multipart.FileHeader, destPath string) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, file)
	return err
}

// GetUploadPath returns the full path for an object key inside the uploads directory
func GetUploadPath(key string) string {
	return filepath.Join("uploads", filepath.FromSlash(key))
}

// ReadUpload reads a locally stored upload back by its object key
func ReadUpload(key string) ([]byte, error) {
	return os.ReadFile(GetUploadPath(key))
}
