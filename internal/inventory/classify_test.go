package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/procudo/contract-cli/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		filename string
		ext      string
		want     model.DocType
	}{
		{"Ugovor o održavanju U-21-15.docx", ".docx", model.DocTypeContract},
		{"Ugovor o odrzavanju.doc", ".doc", model.DocTypeContract},
		{"Cooperation Agreement 2019.pdf", ".pdf", model.DocTypeContract},
		{"Aneks 1 ugovora.docx", ".docx", model.DocTypeAnnex},
		{"Anex ugovora o održavanju.pdf", ".pdf", model.DocTypeAnnex},
		{"Dodatak ugovoru.docx", ".docx", model.DocTypeAnnex},
		{"Raskid ugovora.pdf", ".pdf", model.DocTypeTermination},
		{"Ponuda 2024.docx", ".docx", model.DocTypeOffer},
		{"Cjenik usluga.pdf", ".pdf", model.DocTypePriceList},
		{"Prilog 2.docx", ".docx", model.DocTypeAttachment},
		{"skenirano_0001.pdf", ".pdf", model.DocTypeUnclassified},
		{"Ugovor.txt", ".txt", model.DocTypeUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.filename, tt.ext))
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	// Termination and annex keywords beat the generic contract keyword.
	assert.Equal(t, model.DocTypeTermination, Classify("Raskid ugovora o održavanju.docx", ".docx"))
	assert.Equal(t, model.DocTypeAnnex, Classify("Aneks ugovora U-19-07.docx", ".docx"))
}

func TestAmendmentNumber(t *testing.T) {
	assert.Equal(t, "U-21-15", AmendmentNumber("Ugovor U-21-15 final.docx"))
	assert.Equal(t, "U-19-007", AmendmentNumber("aneks u-19-007.pdf"))
	assert.Equal(t, "", AmendmentNumber("Ugovor o održavanju.docx"))
}

func TestNormalizeStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ugovor_o_održavanju.docx", "ugovor o održavanju"},
		{"Ugovor o održavanju (2).docx", "ugovor o održavanju"},
		{"Ugovor o održavanju kopija.pdf", "ugovor o održavanju"},
		{"Ugovor o održavanju - final.doc", "ugovor o održavanju"},
		{"ANEKS   1.docx", "aneks 1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeStem(tt.in), tt.in)
	}
}

func TestNormalizeStemNFC(t *testing.T) {
	// Decomposed and precomposed forms of the same name normalize equal.
	decomposed := "ugovor o održavanju" // ž precomposed
	composed := "ugovor o održavanju"  // z + combining caron
	assert.Equal(t, NormalizeStem(decomposed+".docx"), NormalizeStem(composed+".docx"))
}
