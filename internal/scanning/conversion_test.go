package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func sampleJPEG() []byte {
	img := image.NewGray(image.Rect(0, 0, 40, 20))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetGray(10, 10, color.Gray{Y: 0})
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, img, nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("PrepareImage", func() {
	var (
		data        []byte
		contentType string
		out         []byte
		err         error
	)

	JustBeforeEach(func() {
		out, err = PrepareImage(data, contentType)
	})

	When("the upload is a PNG", func() {
		BeforeEach(func() {
			data = samplePNG()
			contentType = "image/png"
		})

		It("should pass it through unchanged", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(data))
		})
	})

	When("the upload is a JPEG", func() {
		BeforeEach(func() {
			data = sampleJPEG()
			contentType = "image/jpeg"
		})

		It("should convert it to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			cfg, err := png.DecodeConfig(bytes.NewReader(out))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Width).To(Equal(40))
			Expect(cfg.Height).To(Equal(20))
		})
	})

	When("the client sends no content type", func() {
		BeforeEach(func() {
			data = sampleJPEG()
			contentType = ""
		})

		It("should sniff the format", func() {
			Expect(err).NotTo(HaveOccurred())
			_, err := png.DecodeConfig(bytes.NewReader(out))
			Expect(err).NotTo(HaveOccurred())
		})
	})

	When("the declared type does not match the data", func() {
		BeforeEach(func() {
			data = sampleJPEG()
			contentType = "image/png"
		})

		It("should decode the data as what it is", func() {
			Expect(err).NotTo(HaveOccurred())
			cfg, err := png.DecodeConfig(bytes.NewReader(out))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Width).To(Equal(40))
		})
	})

	When("the upload is empty", func() {
		BeforeEach(func() {
			data = nil
			contentType = "image/png"
		})

		It("should report a malformed image", func() {
			kind, _ := KindOf(err)
			Expect(kind).To(Equal(KindMalformedImage))
		})
	})

	When("the upload is not an image", func() {
		BeforeEach(func() {
			data = []byte("hello world, this is plain text")
			contentType = "application/octet-stream"
		})

		It("should report a malformed image", func() {
			kind, _ := KindOf(err)
			Expect(kind).To(Equal(KindMalformedImage))
		})
	})
})

var _ = Describe("detectMimeType", func() {
	It("should strip parameters", func() {
		Expect(detectMimeType(nil, "Image/JPEG; charset=binary")).To(Equal("image/jpeg"))
	})

	It("should prefer the sniffed type over a wrong declaration", func() {
		Expect(detectMimeType(sampleJPEG(), "image/png")).To(Equal("image/jpeg"))
		Expect(detectMimeType(samplePNG(), "image/jpeg")).To(Equal("image/png"))
	})

	It("should keep the declared type when the data is not recognized", func() {
		heif := []byte("not a known signature at all")
		Expect(detectMimeType(heif, "image/heif")).To(Equal("image/heif"))
	})

	It("should recognize HEIC data", func() {
		heic := append([]byte{0, 0, 0, 0x18}, []byte("ftypheic")...)
		heic = append(heic, make([]byte, 16)...)
		Expect(detectMimeType(heic, "")).To(Equal("image/heic"))
	})
})
