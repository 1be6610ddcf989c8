package pdfops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEligible(t *testing.T) {
	data := []struct {
		info StreamInfo
		want bool
	}{
		{info: nil, want: true},
		{info: Dict{}, want: true},
		{info: Dict{"Type": Name("XObject"), "Subtype": Name("Form")}, want: true},
		{info: Dict{"Type": Name("Pattern")}, want: true},
		{info: Dict{"Type": Name("XObject"), "Subtype": Name("Image")}, want: false},
		{info: Dict{"Subtype": Name("Image")}, want: false},
		{info: Dict{"Type": Name("ObjStm")}, want: false},
		{info: Dict{"Type": Name("Metadata"), "Subtype": Name("XML")}, want: false},
		{info: Dict{"Type": Name("XRef")}, want: false},
		{info: Dict{"Length1": Int(100), "Length": Int(80)}, want: false},
		{info: Dict{"Length2": Int(100)}, want: true},
		{info: Dict{"Type": String{Bytes: []byte("Image")}}, want: true},
		{info: Object{Dict: Dict{"Type": Name("ObjStm")}}, want: false},
	}
	for _, d := range data {
		assert.Equal(t, d.want, Eligible(d.info), "%v", d.info)
	}
}
