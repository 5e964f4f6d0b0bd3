package expense

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		basePath string
		storage  *LocalStorage
	)

	BeforeEach(func() {
		basePath = filepath.Join(GinkgoT().TempDir(), "uploads")
		var err error
		storage, err = NewLocalStorage(basePath)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should create the directory", func() {
		info, err := os.Stat(basePath)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("should save and read back a file", func() {
		name, err := storage.Save("scan-1_receipt.png", []byte("png-bytes"))
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal("scan-1_receipt.png"))

		data, err := storage.Get(name)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte("png-bytes")))
	})

	It("should not write outside the base directory", func() {
		name, err := storage.Save("../escape.png", []byte("x"))
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal("escape.png"))
		Expect(filepath.Join(basePath, "escape.png")).To(BeAnExistingFile())
	})

	It("should fail for a missing file", func() {
		_, err := storage.Get("missing.png")
		Expect(err).To(HaveOccurred())
	})
})
