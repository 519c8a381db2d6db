package tasks

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/notafacil/nfse-api/internal/domain/entity"
	"github.com/notafacil/nfse-api/internal/domain/repository"
)

var hundred = decimal.NewFromInt(100)

// Cabeçalho do relatório mensal, uma aba por emissor.
var exportHeader = []string{
	"STATUS", "Nº DPS", "Nº NFSe", "DATA DE ENVIO", "COMPETÊNCIA", "VALOR",
	"ALÍQUOTA (%)", "PRESTADOR", "CNPJ PRESTADOR", "TOMADOR", "CNPJ/CPF TOMADOR",
	"DESCRIÇÃO DOS SERVIÇOS", "CÓDIGO DA ATIVIDADE", "CIDADE TOMADOR", "ENDEREÇO TOMADOR",
}

var exportStatusLabel = map[string]string{
	entity.TaskStatusPending:       "PENDENTE",
	entity.TaskStatusAccepted:      "AUTORIZADA",
	entity.TaskStatusError:         "ERRO",
	entity.TaskStatusCancelRequest: "CANCELAMENTO SOLICITADO",
	entity.TaskStatusCanceled:      "CANCELADA",
}

var sheetNameRe = regexp.MustCompile(`[\\/*?:\[\]]`)

// ExportXLSX gera o relatório mensal de notas em XLSX, uma aba por emissor,
// e devolve o conteúdo com o nome de arquivo sugerido (nfse_MMYYYY.xlsx).
// emitterID vazio exporta todos os emissores do usuário.
func (uc *TaskUseCase) ExportXLSX(userID string, year, month int, emitterID string) ([]byte, string, error) {
	from, to, err := MonthRange(year, month)
	if err != nil {
		return nil, "", err
	}

	list, err := uc.tasks.List(userID, repository.TaskFilter{
		EmitterID: emitterID,
		From:      from,
		To:        to,
	})
	if err != nil {
		return nil, "", fmt.Errorf("listando tasks para exportação: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"DDDDDD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border: []excelize.Border{
			{Type: "left", Style: 1}, {Type: "right", Style: 1},
			{Type: "top", Style: 1}, {Type: "bottom", Style: 1},
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("estilo do cabeçalho: %w", err)
	}
	numberStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, "", fmt.Errorf("estilo numérico: %w", err)
	}

	emitterCache := map[string]*entity.Emitter{}
	clientCache := map[string]*entity.Client{}
	sheetRows := map[string]int{}

	for _, t := range list {
		emitter, err := uc.cachedEmitter(userID, t.EmitterID, emitterCache)
		if err != nil {
			return nil, "", err
		}
		client, err := uc.cachedClient(userID, t.ClientID, clientCache)
		if err != nil {
			return nil, "", err
		}

		sheet := exportSheetName(emitter)
		if _, ok := sheetRows[sheet]; !ok {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, "", fmt.Errorf("criando aba %q: %w", sheet, err)
			}
			if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
				return nil, "", fmt.Errorf("cabeçalho da aba %q: %w", sheet, err)
			}
			last, _ := excelize.CoordinatesToCellName(len(exportHeader), 1)
			if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
				return nil, "", fmt.Errorf("estilo da aba %q: %w", sheet, err)
			}
			sheetRows[sheet] = 1
		}

		sheetRows[sheet]++
		rowNum := sheetRows[sheet]
		row := exportRow(t, emitter, client)
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, "", fmt.Errorf("linha %d da aba %q: %w", rowNum, sheet, err)
		}
		// Valor e alíquota como números formatados.
		for _, col := range []int{6, 7} {
			c, _ := excelize.CoordinatesToCellName(col, rowNum)
			if err := f.SetCellStyle(sheet, c, c, numberStyle); err != nil {
				return nil, "", fmt.Errorf("formato numérico: %w", err)
			}
		}
	}

	if len(sheetRows) == 0 {
		if _, err := f.NewSheet("Sem Dados"); err != nil {
			return nil, "", fmt.Errorf("criando aba vazia: %w", err)
		}
	} else {
		autoFitColumns(f, sheetRows)
	}
	// A aba padrão do excelize fica para trás.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, "", fmt.Errorf("removendo aba padrão: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("gravando planilha: %w", err)
	}
	filename := fmt.Sprintf("nfse_%02d%d.xlsx", month, year)
	return buf.Bytes(), filename, nil
}

func (uc *TaskUseCase) cachedEmitter(userID, id string, cache map[string]*entity.Emitter) (*entity.Emitter, error) {
	if e, ok := cache[id]; ok {
		return e, nil
	}
	e, err := uc.emitters.GetByID(id, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando emissor %s: %w", id, err)
	}
	cache[id] = e
	return e, nil
}

func (uc *TaskUseCase) cachedClient(userID, id string, cache map[string]*entity.Client) (*entity.Client, error) {
	if c, ok := cache[id]; ok {
		return c, nil
	}
	c, err := uc.clients.GetByID(id, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando cliente %s: %w", id, err)
	}
	cache[id] = c
	return c, nil
}

// exportSheetName limpa o nome do emissor para os limites de nome de aba do
// Excel (sem \ / * ? : [ ], máximo 31 caracteres).
func exportSheetName(emitter *entity.Emitter) string {
	name := "Sem Emissor"
	if emitter != nil && emitter.Name != "" {
		name = emitter.Name
	}
	name = sheetNameRe.ReplaceAllString(name, "")
	runes := []rune(name)
	if len(runes) > 31 {
		name = string(runes[:31])
	}
	if strings.TrimSpace(name) == "" {
		name = "Sem Emissor"
	}
	return name
}

func exportRow(t *entity.Task, emitter *entity.Emitter, client *entity.Client) []interface{} {
	status := exportStatusLabel[t.Status]
	if status == "" {
		status = strings.ToUpper(t.Status)
	}

	var emitterName, emitterDoc string
	if emitter != nil {
		emitterName = emitter.Name
		emitterDoc = emitter.Document()
	}
	var clientName, clientDoc, clientCity, clientAddr string
	if client != nil {
		clientName = client.Name
		clientDoc = client.Document()
		clientCity = client.City
		clientAddr = strings.TrimSpace(fmt.Sprintf("%s %s %s", client.Street, client.Number, client.District))
	}
	if clientName == "" {
		clientName = t.ClientID
	}

	// Alíquota fracionária (0.02) vira percentual no relatório.
	ratePct, _ := t.TaxRate.Mul(hundred).Float64()
	amount, _ := t.Amount.Float64()

	return []interface{}{
		status,
		t.DPS.Number,
		t.InvoiceNum,
		t.CreatedAt.Format("02/01/2006 15:04:05"),
		t.Competency,
		amount,
		ratePct,
		emitterName,
		emitterDoc,
		clientName,
		clientDoc,
		strings.Join(strings.Fields(t.Description), " "),
		t.ServiceCode,
		clientCity,
		clientAddr,
	}
}

// autoFitColumns dá uma largura razoável às colunas (entre 10 e 60).
func autoFitColumns(f *excelize.File, sheetRows map[string]int) {
	for sheet := range sheetRows {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		widths := make([]int, len(exportHeader))
		for _, row := range rows {
			for i, cell := range row {
				if i < len(widths) && len(cell) > widths[i] {
					widths[i] = len(cell)
				}
			}
		}
		for i, w := range widths {
			w += 2
			if w > 60 {
				w = 60
			}
			if w < 10 {
				w = 10
			}
			col, _ := excelize.ColumnNumberToName(i + 1)
			_ = f.SetColWidth(sheet, col, col, float64(w))
		}
	}
}
