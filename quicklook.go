package filterbank

import (
	"fmt"
	"os"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// writeQuicklook exports each bank of a just-written sweep as a NumPy
// array file next to the table, one (nrows x nchan) matrix per bank, so a
// quick plot does not need a FITS reader on the analysis machine.
func writeQuicklook(tablePath string, cs *ColumnSet) error {
	stem := strings.TrimSuffix(tablePath, tableSuffix)
	for k := 0; k < NumBanks; k++ {
		data := make([]float64, len(cs.Banks[k]))
		for i, s := range cs.Banks[k] {
			data[i] = float64(s)
		}
		m := mat.NewDense(cs.NRows, cs.ChannelCount, data)
		path := fmt.Sprintf("%s_bank%d.npy", stem, k+1)
		if err := writeNpy(path, m); err != nil {
			return err
		}
	}
	return nil
}

func writeNpy(path string, m *mat.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := npyio.Write(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
