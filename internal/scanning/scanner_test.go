package scanning

import (
	"encoding/json"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BBox", func() {
	It("should encode points as pairs", func() {
		data, err := json.Marshal(RectBBox(1, 2, 3, 4))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("[[1,2],[3,2],[3,4],[1,4]]"))
	})

	It("should decode points from pairs", func() {
		var box BBox
		Expect(json.Unmarshal([]byte("[[10,20],[30,20],[30,40],[10,40]]"), &box)).To(Succeed())
		Expect(box).To(Equal(RectBBox(10, 20, 30, 40)))
	})

	It("should reject malformed points", func() {
		var box BBox
		Expect(json.Unmarshal([]byte(`[["a","b"]]`), &box)).NotTo(Succeed())
	})

	It("should compute the enclosing rectangle of a polygon", func() {
		box := BBox{{X: 5, Y: 1}, {X: 9, Y: 3}, {X: 6, Y: 8}, {X: 2, Y: 4}}
		minX, minY, maxX, maxY, ok := box.Bounds()
		Expect(ok).To(BeTrue())
		Expect([]float64{minX, minY, maxX, maxY}).To(Equal([]float64{2, 1, 9, 8}))
	})

	It("should report an empty polygon", func() {
		_, _, _, _, ok := BBox(nil).Bounds()
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("clampConfidence", func() {
	It("should keep values inside the range", func() {
		Expect(clampConfidence(0.42)).To(Equal(0.42))
	})

	It("should clamp values outside the range", func() {
		Expect(clampConfidence(1.7)).To(Equal(1.0))
		Expect(clampConfidence(-0.1)).To(Equal(0.0))
		Expect(clampConfidence(math.NaN())).To(Equal(0.0))
	})
})
