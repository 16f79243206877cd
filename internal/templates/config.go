package templates

import "os"

const configTemplate = `
home_dir: ~/.glyphworks
filesystem_type: local
environment: development

model:
  id: deepseek-ai/DeepSeek-OCR

runtime:
  tcp_port: 8712
  timeout: 600
  autostart: true
  command: python -m glyph_runtime

# db:
#   driver: sqlite
#   dsn: "file:~/.glyphworks/data/glyph.db"

# s3:
#   endpoint_url: "https://nyc3.digitaloceanspaces.com"
#   region_name: "nyc3"
#   bucket_name: "glyph-artifacts"
#   folder: "public"
#   public_url: "https://storage.glyphworks.dev"
`

const envTemplate = `# Secrets belong here rather than in config.yaml.
# HF_TOKEN=
# OPENAI_API_KEY=
# GLYPH_S3_ACCESS_KEY=
# GLYPH_S3_SECRET_KEY=
`

func GetConfigTemplate() string {
	return configTemplate
}

func WriteConfig(path string) error {
	return writeFile(path, GetConfigTemplate())
}

func WriteEnv(path string) error {
	return writeFile(path, envTemplate)
}

func writeFile(path string, content string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(content)
	if err != nil {
		return err
	}

	return nil
}
